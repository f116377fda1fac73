package model

// Intent is the structured interpretation of a user's natural-language request,
// produced by the language oracle. Consumers treat it as read-only; the only
// mutation is merging a follow-up intent into a pending one.
type Intent struct {
	OperationHint   string         `json:"operation"`
	ResourceHint    string         `json:"resource"`
	WantsCollection bool           `json:"wants_collection"`
	Parameters      map[string]any `json:"parameters"`
	Data            map[string]any `json:"data"`
	Goal            string         `json:"intent"`
	Confidence      float64        `json:"confidence"`
}

// Merge returns a new intent combining the receiver with a follow-up intent.
// Parameter and data maps are unioned; follow-up values win on key collision.
// Hint fields keep the original values since a follow-up supplies missing data,
// not a new goal.
func (i Intent) Merge(followup Intent) Intent {
	merged := i
	merged.Parameters = mergeMaps(i.Parameters, followup.Parameters)
	merged.Data = mergeMaps(i.Data, followup.Data)
	return merged
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
