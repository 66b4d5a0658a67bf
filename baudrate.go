package serialterm

// standardBaudRates is the conventional set offered for selection. It matches
// the rates a Linux termios driver accepts without custom divisors.
var standardBaudRates = []int{
	50, 75, 110, 134, 150, 200, 300, 600,
	1200, 1800, 2400, 4800, 9600, 19200, 38400, 57600,
	115200, 230400, 460800, 500000, 576000, 921600,
	1000000, 1152000, 1500000, 2000000, 2500000, 3000000, 3500000, 4000000,
}

// DefaultBaudRate is preselected by the CLI and console.
const DefaultBaudRate = 115200

// StandardBaudRates returns the conventional baud rates in ascending order.
// The returned slice is a copy and may be modified by the caller.
func StandardBaudRates() []int {
	rates := make([]int, len(standardBaudRates))
	copy(rates, standardBaudRates)
	return rates
}

// IsStandardBaudRate reports whether rate is one of StandardBaudRates.
func IsStandardBaudRate(rate int) bool {
	for _, r := range standardBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}
