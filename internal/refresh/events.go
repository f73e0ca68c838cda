package refresh

import (
	"encoding/json"

	"github.com/vrsandeep/podcatch/internal/models"
)

// Event is one progress message of a refresh run. The set of events is
// closed: StatusUpdate, NewEpisode and ErrorEvent.
type Event interface {
	isEvent()
}

// StatusUpdate reports which subscription is being processed.
type StatusUpdate struct {
	Current uint32
	Total   uint32
	Label   string
}

// NewEpisode announces an episode that was just stored.
type NewEpisode struct {
	Episode models.Episode
}

// ErrorEvent carries a fatal error. It is always the last event of a run.
type ErrorEvent struct {
	Message string
}

func (StatusUpdate) isEvent() {}
func (NewEpisode) isEvent()   {}
func (ErrorEvent) isEvent()   {}

type progressPayload struct {
	Current        uint32 `json:"current"`
	Total          uint32 `json:"total"`
	CurrentPodcast string `json:"current_podcast"`
}

// MarshalJSON encodes {"progress":{...}}.
func (s StatusUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Progress progressPayload `json:"progress"`
	}{progressPayload{Current: s.Current, Total: s.Total, CurrentPodcast: s.Label}})
}

// MarshalJSON encodes {"new_episode":{...}}.
func (e NewEpisode) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		NewEpisode models.EpisodeView `json:"new_episode"`
	}{e.Episode.View()})
}

// MarshalJSON encodes {"detail":"..."}.
func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Detail string `json:"detail"`
	}{e.Message})
}
