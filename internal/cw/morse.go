// Package cw turns a stream of timestamped tone-power readings into Morse characters.
package cw

// Element symbols as they appear in a code string.
const (
	Dot  = '.'
	Dash = '-'
)

// morseTree is the binary tree for Morse code lookup.
// Left branch = dot, right branch = dash.
// Index 1 is the root; children of i are 2i (dot) and 2i+1 (dash).
// Only letters and digits are populated; everything else decodes as unrecognized.
var morseTree = [64]rune{
	0,   // 0: unused
	0,   // 1: root
	'E', // 2: .
	'T', // 3: -
	'I', // 4: ..
	'A', // 5: .-
	'N', // 6: -.
	'M', // 7: --
	'S', // 8: ...
	'U', // 9: ..-
	'R', // 10: .-.
	'W', // 11: .--
	'D', // 12: -..
	'K', // 13: -.-
	'G', // 14: --.
	'O', // 15: ---
	'H', // 16: ....
	'V', // 17: ...-
	'F', // 18: ..-.
	0,   // 19: ..--
	'L', // 20: .-..
	0,   // 21: .-.-
	'P', // 22: .--.
	'J', // 23: .---
	'B', // 24: -...
	'X', // 25: -..-
	'C', // 26: -.-.
	'Y', // 27: -.--
	'Z', // 28: --..
	'Q', // 29: --.-
	0,   // 30: ---.
	0,   // 31: ----
	'5', // 32: .....
	'4', // 33: ....-
	0,   // 34: ...-.
	'3', // 35: ...--
	0,   // 36: ..-..
	0,   // 37: ..-.-
	0,   // 38: ..--.
	'2', // 39: ..---
	0,   // 40: .-...
	0,   // 41: .-..-
	0,   // 42: .-.-.
	0,   // 43: .-.--
	0,   // 44: .--..
	0,   // 45: .--.-
	0,   // 46: .---.
	'1', // 47: .----
	'6', // 48: -....
	0,   // 49: -...-
	0,   // 50: -..-.
	0,   // 51: -..--
	0,   // 52: -.-..
	0,   // 53: -.-.-
	0,   // 54: -.--.
	0,   // 55: -.---
	'7', // 56: --...
	0,   // 57: --..-
	0,   // 58: --.-.
	0,   // 59: --.--
	'8', // 60: ---..
	0,   // 61: ---.-
	'9', // 62: ----.
	'0', // 63: -----
}

// encodeTable is the reverse of morseTree, built once at start-up and never written again.
var encodeTable = buildEncodeTable()

func buildEncodeTable() map[rune]string {
	table := make(map[rune]string, 36)
	for i := 2; i < len(morseTree); i++ {
		if morseTree[i] == 0 {
			continue
		}
		table[morseTree[i]] = codeForIndex(i)
	}
	return table
}

// codeForIndex reads the path from the root to tree index i.
func codeForIndex(i int) string {
	var rev []byte
	for ; i > 1; i /= 2 {
		if i%2 == 0 {
			rev = append(rev, Dot)
		} else {
			rev = append(rev, Dash)
		}
	}
	code := make([]byte, len(rev))
	for j := range rev {
		code[j] = rev[len(rev)-1-j]
	}
	return string(code)
}

// Lookup returns the character for a dot/dash code.
// It reports false for empty codes, codes with other symbols and unassigned sequences.
func Lookup(code string) (rune, bool) {
	if code == "" {
		return 0, false
	}
	index := 1
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case Dot:
			index = index * 2
		case Dash:
			index = index*2 + 1
		default:
			return 0, false
		}
		if index >= len(morseTree) {
			return 0, false
		}
	}
	char := morseTree[index]
	return char, char != 0
}

// Encode returns the dot/dash code for an upper-case letter or digit.
func Encode(char rune) (string, bool) {
	code, ok := encodeTable[char]
	return code, ok
}
