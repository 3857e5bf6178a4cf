// Package hid provides the subset of USB HID keyboard usage codes the
// builtin capabilities emit, plus rune lookups for simulation tooling.
package hid

// Usage is a USB HID keyboard usage code (usage page 0x07).
type Usage uint16

// Keyboard usage codes per the USB HID usage tables.
const (
	UsageNone Usage = 0x00

	UsageA Usage = 0x04
	UsageB Usage = 0x05
	UsageC Usage = 0x06
	UsageD Usage = 0x07
	UsageE Usage = 0x08
	UsageF Usage = 0x09
	UsageG Usage = 0x0A
	UsageH Usage = 0x0B
	UsageI Usage = 0x0C
	UsageJ Usage = 0x0D
	UsageK Usage = 0x0E
	UsageL Usage = 0x0F
	UsageM Usage = 0x10
	UsageN Usage = 0x11
	UsageO Usage = 0x12
	UsageP Usage = 0x13
	UsageQ Usage = 0x14
	UsageR Usage = 0x15
	UsageS Usage = 0x16
	UsageT Usage = 0x17
	UsageU Usage = 0x18
	UsageV Usage = 0x19
	UsageW Usage = 0x1A
	UsageX Usage = 0x1B
	UsageY Usage = 0x1C
	UsageZ Usage = 0x1D

	Usage1 Usage = 0x1E
	Usage2 Usage = 0x1F
	Usage3 Usage = 0x20
	Usage4 Usage = 0x21
	Usage5 Usage = 0x22
	Usage6 Usage = 0x23
	Usage7 Usage = 0x24
	Usage8 Usage = 0x25
	Usage9 Usage = 0x26
	Usage0 Usage = 0x27

	UsageEnter     Usage = 0x28
	UsageEscape    Usage = 0x29
	UsageBackspace Usage = 0x2A
	UsageTab       Usage = 0x2B
	UsageSpace     Usage = 0x2C
	UsageMinus     Usage = 0x2D
	UsageEquals    Usage = 0x2E
	UsageLBracket  Usage = 0x2F
	UsageRBracket  Usage = 0x30
	UsageBackslash Usage = 0x31
	UsageSemicolon Usage = 0x33
	UsageQuote     Usage = 0x34
	UsageGrave     Usage = 0x35
	UsageComma     Usage = 0x36
	UsagePeriod    Usage = 0x37
	UsageSlash     Usage = 0x38
	UsageCapsLock  Usage = 0x39

	UsageF1  Usage = 0x3A
	UsageF2  Usage = 0x3B
	UsageF3  Usage = 0x3C
	UsageF4  Usage = 0x3D
	UsageF5  Usage = 0x3E
	UsageF6  Usage = 0x3F
	UsageF7  Usage = 0x40
	UsageF8  Usage = 0x41
	UsageF9  Usage = 0x42
	UsageF10 Usage = 0x43
	UsageF11 Usage = 0x44
	UsageF12 Usage = 0x45

	UsageRight Usage = 0x4F
	UsageLeft  Usage = 0x50
	UsageDown  Usage = 0x51
	UsageUp    Usage = 0x52

	UsageLCtrl  Usage = 0xE0
	UsageLShift Usage = 0xE1
	UsageLAlt   Usage = 0xE2
	UsageLGUI   Usage = 0xE3
	UsageRCtrl  Usage = 0xE4
	UsageRShift Usage = 0xE5
	UsageRAlt   Usage = 0xE6
	UsageRGUI   Usage = 0xE7
)

// runeUsageMap maps unshifted US-layout runes to usage codes.
var runeUsageMap = map[rune]Usage{
	'a': UsageA, 'b': UsageB, 'c': UsageC, 'd': UsageD, 'e': UsageE,
	'f': UsageF, 'g': UsageG, 'h': UsageH, 'i': UsageI, 'j': UsageJ,
	'k': UsageK, 'l': UsageL, 'm': UsageM, 'n': UsageN, 'o': UsageO,
	'p': UsageP, 'q': UsageQ, 'r': UsageR, 's': UsageS, 't': UsageT,
	'u': UsageU, 'v': UsageV, 'w': UsageW, 'x': UsageX, 'y': UsageY,
	'z': UsageZ,
	'1': Usage1, '2': Usage2, '3': Usage3, '4': Usage4, '5': Usage5,
	'6': Usage6, '7': Usage7, '8': Usage8, '9': Usage9, '0': Usage0,
	'\n': UsageEnter, '\t': UsageTab, ' ': UsageSpace,
	'-': UsageMinus, '=': UsageEquals, '[': UsageLBracket, ']': UsageRBracket,
	'\\': UsageBackslash, ';': UsageSemicolon, '\'': UsageQuote,
	'`': UsageGrave, ',': UsageComma, '.': UsagePeriod, '/': UsageSlash,
}

// usageRuneMap is the reverse of runeUsageMap, built once at init.
var usageRuneMap = func() map[Usage]rune {
	m := make(map[Usage]rune, len(runeUsageMap))
	for r, u := range runeUsageMap {
		m[u] = r
	}
	return m
}()

// UsageForRune returns the usage code for an unshifted US-layout rune.
func UsageForRune(r rune) (Usage, bool) {
	u, ok := runeUsageMap[r]
	return u, ok
}

// RuneForUsage returns the unshifted US-layout rune for a usage code.
func RuneForUsage(u Usage) (rune, bool) {
	r, ok := usageRuneMap[u]
	return r, ok
}
