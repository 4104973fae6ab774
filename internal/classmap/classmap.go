// Package classmap provides the static car-model-to-performance-class
// mapping used to partition the record table (spec §4.3). Cars absent from
// the map use their own model string as their class (self-class).
package classmap

// classes collapses every GT4 model variant onto the single "gt4" class, so
// drivers competing in different GT4 cars fight for the same record slot.
// Seeded from the original acsps/database/queries.py car_classes table.
var classes = map[string]string{
	"gt4_alpine_a110":                 "gt4",
	"gt4_aston_martin_vantage":        "gt4",
	"gt4_audi_r8":                     "gt4",
	"gt4_bmw_m4":                      "gt4",
	"gt4_camaro":                      "gt4",
	"gt4_ford_mustang":                "gt4",
	"gt4_ginetta_g55":                 "gt4",
	"gt4_ktm_xbow":                    "gt4",
	"gt4_mclaren_570s":                "gt4",
	"gt4_mercedes_amg":                "gt4",
	"gt4_panoz_avezzano":              "gt4",
	"gt4_porsche_cayman_718":          "gt4",
	"gt4_saleen_s1":                   "gt4",
	"gt4_sin_r1":                      "gt4",
	"gt4_toyota_supra":                "gt4",
	"lotus_2_eleven_gt4":              "gt4",
	"ks_maserati_gt_mc_gt4":           "gt4",
	"ks_porsche_cayman_gt4_clubsport": "gt4",
}

// ClassOf returns the mapped performance class for car, or car itself when
// it is not present in the map.
func ClassOf(car string) string {
	if class, ok := classes[car]; ok {
		return class
	}
	return car
}
