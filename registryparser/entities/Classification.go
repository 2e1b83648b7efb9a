package entities

// Classification is one node of the disease-classification dataset.
type Classification struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Subcategories []Classification `json:"subcategories,omitempty"`
}
