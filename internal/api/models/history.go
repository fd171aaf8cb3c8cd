package models

import "github.com/smazurov/debezel/internal/history"

// HistoryRequest pages the run history.
type HistoryRequest struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum entries"`
}

// HistoryData lists finished runs.
type HistoryData struct {
	Entries []history.Entry `json:"entries" doc:"Newest first"`
	Count   int             `json:"count" doc:"Number of entries"`
}

// HistoryResponse lists finished runs.
type HistoryResponse struct {
	Body HistoryData
}
