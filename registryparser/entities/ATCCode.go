package entities

// ATCCode is the decomposed Anatomical Therapeutic Chemical classification.
// An unknown classification is the zero value, never a nil pointer.
type ATCCode struct {
	Code        string `json:"code"`
	Level1      string `json:"level1"`
	Level2      string `json:"level2"`
	Level3      string `json:"level3"`
	Level4      string `json:"level4"`
	Level5      string `json:"level5"`
	Description string `json:"description"`
}
