package messages

// CropRequest is the body of POST /recommend_crop. Values are copied verbatim
// from the form; the backend does the float conversion.
type CropRequest struct {
	N           string `json:"N"`
	P           string `json:"P"`
	K           string `json:"K"`
	Temperature string `json:"temperature"` // °C
	Humidity    string `json:"humidity"`    // %
	Ph          string `json:"ph"`
	Rainfall    string `json:"rainfall"` // mm
}

type Recommendation struct {
	Crop        string `json:"crop"`
	Probability Float  `json:"probability"` // [0..1]
}

// CropResponse is either a ranked list (server-sorted, descending) or an error.
type CropResponse struct {
	TopRecommendation string           `json:"top_recommendation,omitempty"`
	Recommendations   []Recommendation `json:"recommendations,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// Top returns the crop to highlight. The backend's own prediction wins over
// the head of the list when both are present.
func (r CropResponse) Top() string {
	if r.TopRecommendation != "" {
		return r.TopRecommendation
	}
	if len(r.Recommendations) > 0 {
		return r.Recommendations[0].Crop
	}
	return ""
}

// TopProbability is the probability of the first list entry.
func (r CropResponse) TopProbability() float64 {
	if len(r.Recommendations) == 0 {
		return 0
	}
	return float64(r.Recommendations[0].Probability)
}

// Others returns every recommendation after the first one.
func (r CropResponse) Others() []Recommendation {
	if len(r.Recommendations) < 2 {
		return nil
	}
	return r.Recommendations[1:]
}
