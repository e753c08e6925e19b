package names

// Dutch profanity and inappropriate words blocked in player names, based
// on common public sources. The list can be expanded as needed.
var dutchProfanities = []string{
	"aso", "debiel", "drol", "eikel", "flikker", "hoer", "homo", "klootzak",
	"kut", "lul", "mongool", "neger", "slet", "sukkel", "tering", "trut",
	"verdomme", "godverdomme", "gvd", "klote", "pokke", "tyfus", "bitch",
	"kak", "shit", "fuck", "pijpen", "neuken", "aftrekken", "rukken",
	"geil", "hoerenloper", "kanker", "kk", "kankerlijer", "lijer",
	"mierenneuker", "mof", "neuk", "nicht", "pedo", "pleuris", "randdebiel",
	"scheit", "schijt", "sperma", "tyfuslijer", "vagina", "penis",
	"zaad", "zwartkop",
}
