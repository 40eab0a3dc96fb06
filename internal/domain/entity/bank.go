package entity

// Bank is read-only reference data
type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultBanks returns the banks accounts are opened with at signup
func DefaultBanks() []Bank {
	return []Bank{
		{Code: "044", Name: "Access Bank"},
		{Code: "058", Name: "GTBank"},
		{Code: "057", Name: "Zenith Bank"},
		{Code: "011", Name: "First Bank"},
		{Code: "033", Name: "UBA"},
		{Code: "070", Name: "Fidelity Bank"},
	}
}

// FindBank returns the bank with the given code
func FindBank(banks []Bank, code string) (Bank, bool) {
	for _, b := range banks {
		if b.Code == code {
			return b, true
		}
	}
	return Bank{}, false
}
