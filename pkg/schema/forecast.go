package schema

// ForecastRecord is the Orchestrator's response shape for a forecast
// request, matching the wire contract pinned in §6: a horizon, a per-channel
// per-month prediction map, an opaque confidence scalar, and a model
// version tag.
type ForecastRecord struct {
	Repo           string
	HorizonMonths  int
	Predictions    map[string]map[Month]float64 // channel name -> month -> value
	Confidence     float64
	ModelVersion   string
}

// NewForecastRecord pivots a (P x V) standardized-and-inverted prediction
// matrix, plus the month each row corresponds to, into the channel-keyed
// wire shape.
func NewForecastRecord(repo string, months []Month, pred [][NumChannels]float64, confidence float64, modelVersion string) *ForecastRecord {
	out := &ForecastRecord{
		Repo:          repo,
		HorizonMonths: len(months),
		Predictions:   make(map[string]map[Month]float64, NumChannels),
		Confidence:    confidence,
		ModelVersion:  modelVersion,
	}
	for c := 0; c < NumChannels; c++ {
		name := Channel(c).String()
		byMonth := make(map[Month]float64, len(months))
		for i, m := range months {
			byMonth[m] = pred[i][c]
		}
		out.Predictions[name] = byMonth
	}
	return out
}
