package dashboard

import (
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/view"
)

// Status is the outcome of the most recent lookup.
type Status string

// A lookup moves Idle -> Loading -> Success|Failed. The app is idle again
// whenever Screen.Loading is false; Status keeps the last outcome.
const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Toast kinds, also used as metric labels.
const (
	ToastCityNotFound = "city_not_found"
	ToastFetchFailed  = "fetch_failed"
)

// User-facing toast messages.
const (
	MsgCityNotFound = "City not found. Please try again."
	MsgFetchFailed  = "Unable to fetch weather data. Please try again."
)

// Toast is a transient message. ID distinguishes successive toasts so a
// stale dismiss timer cannot clear a newer one.
type Toast struct {
	ID      uint64 `json:"id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Screen is everything the page shows. Values are immutable once published;
// View and Toast are replaced, never mutated.
type Screen struct {
	View      *view.Model  `json:"view,omitempty"`
	Loading   bool         `json:"loading"`
	Status    Status       `json:"status"`
	Toast     *Toast       `json:"toast,omitempty"`
	Time      string       `json:"time"`
	Theme     models.Theme `json:"theme"`
	Seq       uint64       `json:"seq"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
