package studyquiz

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// StudyProgress summarizes the answers graded for one browser session
type StudyProgress struct {
	Answered       int      `json:"answered"`
	TotalScore     float64  `json:"totalScore"`
	TotalOutOf     float64  `json:"totalOutOf"`
	AveragePercent float64  `json:"averagePercent"`
	LastScore      *float64 `json:"lastScore"`
}

// ProgressTracker keeps StudyProgress in a signed cookie session
type ProgressTracker struct {
	store sessions.Store
	name  string
}

// NewProgressTracker creates a tracker. With an empty secret a random key is
// used, so progress does not survive a restart.
func NewProgressTracker(secret, name string) *ProgressTracker {
	key := []byte(secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &ProgressTracker{store: store, name: name}
}

// Load reads the caller's progress. A missing or undecodable cookie yields
// empty progress.
func (p *ProgressTracker) Load(r *http.Request) StudyProgress {
	session, _ := p.store.Get(r, p.name)
	return progressFromSession(session)
}

// Record adds one evaluation to the caller's progress and sets the cookie.
// It must run before the response body is written.
func (p *ProgressTracker) Record(w http.ResponseWriter, r *http.Request, evaluation json.RawMessage) (StudyProgress, error) {
	var ev Evaluation
	if err := json.Unmarshal(evaluation, &ev); err != nil {
		return StudyProgress{}, err
	}
	outOf := ev.OutOf
	if outOf <= 0 {
		outOf = MaxScore
	}

	session, _ := p.store.Get(r, p.name)
	progress := progressFromSession(session)

	session.Values["answered"] = progress.Answered + 1
	session.Values["total_score"] = progress.TotalScore + ev.Score
	session.Values["total_out_of"] = progress.TotalOutOf + outOf
	session.Values["last_score"] = ev.Score

	if err := session.Save(r, w); err != nil {
		return StudyProgress{}, err
	}
	return progressFromSession(session), nil
}

func progressFromSession(session *sessions.Session) StudyProgress {
	var progress StudyProgress
	if session == nil {
		return progress
	}

	progress.Answered, _ = session.Values["answered"].(int)
	progress.TotalScore, _ = session.Values["total_score"].(float64)
	progress.TotalOutOf, _ = session.Values["total_out_of"].(float64)
	if last, ok := session.Values["last_score"].(float64); ok {
		progress.LastScore = &last
	}
	if progress.TotalOutOf > 0 {
		progress.AveragePercent = math.Round(progress.TotalScore/progress.TotalOutOf*1000) / 10
	}
	return progress
}
