package usecase

// ValidateCPF checks the 11-digit Brazilian tax id. Formatting
// separators are tolerated; anything else must be a digit. The eleven
// identical-digit strings pass the checksum but are not valid CPFs.
func ValidateCPF(cpf string) bool {
	digits := make([]int, 0, 11)
	for _, r := range cpf {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	if len(digits) != 11 {
		return false
	}
	same := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	if cpfCheckDigit(digits[:9], 10) != digits[9] {
		return false
	}
	return cpfCheckDigit(digits[:10], 11) == digits[10]
}

// cpfCheckDigit runs one weighted-sum-mod-11 pass with weights counting
// down from startWeight to 2. A result of 10 or 11 maps to 0.
func cpfCheckDigit(digits []int, startWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (startWeight - i)
	}
	d := 11 - sum%11
	if d >= 10 {
		return 0
	}
	return d
}
