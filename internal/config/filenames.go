package config

import (
	"strconv"
)

func tileFileName(x, y int) string {
	return "tile-" + strconv.Itoa(x) + "_" + strconv.Itoa(y) + ".png"
}

func personDir(personID uint) string {
	return strconv.FormatUint(uint64(personID), 10)
}

func coordFileName(tx, ty, px, py int) string {
	return strconv.Itoa(tx) + "_" + strconv.Itoa(ty) + "_" + strconv.Itoa(px) + "_" + strconv.Itoa(py) + ".png"
}
