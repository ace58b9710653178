package domain

type MapStats struct {
	Reports  int64 `json:"reports"`
	Reviews  int64 `json:"reviews"`
	Sessions int   `json:"connected_sessions"`
}
