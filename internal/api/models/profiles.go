package models

import "github.com/smazurov/debezel/internal/profiles"

// ProfileListData lists wall profiles.
type ProfileListData struct {
	Profiles []profiles.Profile    `json:"profiles" doc:"Stored profiles sorted by name"`
	Presets  []profiles.SizePreset `json:"presets" doc:"Suggested target sizes"`
}

// ProfileListResponse lists wall profiles.
type ProfileListResponse struct {
	Body ProfileListData
}

// ProfileNameRequest addresses one profile.
type ProfileNameRequest struct {
	Name string `path:"name" doc:"Profile name"`
}

// ProfileBody is the editable part of a profile.
type ProfileBody struct {
	Description  string  `json:"description,omitempty" doc:"Free-form note"`
	TopPx        int     `json:"top_px" minimum:"0" doc:"Top bezel width in source pixels"`
	BottomPx     int     `json:"bottom_px" minimum:"0" doc:"Bottom bezel width in source pixels"`
	TargetSizeMB float64 `json:"target_size_mb,omitempty" minimum:"0" doc:"Target output size in MB, 0 for the default bitrate"`
}

// ProfilePutRequest creates or replaces a profile.
type ProfilePutRequest struct {
	Name string `path:"name" doc:"Profile name"`
	Body ProfileBody
}

// ProfileResponse returns one profile.
type ProfileResponse struct {
	Body profiles.Profile
}
