package messages

// FertilizerRequest is the body of POST /recommend_fertilizer.
type FertilizerRequest struct {
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Moisture    string `json:"moisture"`
	SoilType    string `json:"soil_type"`
	CropType    string `json:"crop_type"`
	N           string `json:"N"`
	P           string `json:"P"`
	K           string `json:"K"`
}

// SoilHealth echoes the N/P/K readings the backend evaluated.
type SoilHealth struct {
	N Float `json:"N"`
	P Float `json:"P"`
	K Float `json:"K"`
}

type FertilizerResponse struct {
	Fertilizer   string     `json:"fertilizer,omitempty"`
	Deficiencies []string   `json:"deficiencies,omitempty"`
	SoilHealth   SoilHealth `json:"soil_health"`
	Error        string     `json:"error,omitempty"`
}
