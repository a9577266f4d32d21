// internal/workflow/session.go
package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/CampaignDesk/internal/backend"
	apperrors "github.com/Corphon/CampaignDesk/internal/errors"
	"github.com/Corphon/CampaignDesk/internal/models"
	"github.com/Corphon/CampaignDesk/internal/platform"
	"github.com/Corphon/CampaignDesk/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyTopic is returned when idea generation is submitted without a topic.
	// Nothing is requested and no panel changes.
	ErrEmptyTopic = apperrors.NewValidationError("topic is empty", nil)
	// ErrNoDraft is returned when a specialization is requested before a draft exists.
	ErrNoDraft = apperrors.NewValidationError("no draft to specialize", nil)
	// ErrStaleResponse marks a response dropped because a newer request superseded it.
	ErrStaleResponse = apperrors.NewConflictError("response superseded by a newer request", nil)
)

// PanelUpdate tells subscribers which panel changed. Key is the platform for PanelResult.
type PanelUpdate struct {
	SessionID string
	Panel     string
	Key       string
	Status    PanelStatus
}

// IdeaRef identifies the idea a draft is requested for. ID arrives as text
// (a data attribute, a CLI flag) and is parsed to an integer.
type IdeaRef struct {
	ID   string
	Text string
	// Topic overrides the topic of the ideas panel. Optional.
	Topic string
}

// Options configures a Session.
type Options struct {
	ID        string
	Backend   backend.API
	Platforms *platform.Registry
	// DiscardStaleResponses drops a response when a newer request for the same
	// action was issued after it. Off: the last response to arrive wins.
	DiscardStaleResponses bool
	Logger                logrus.FieldLogger
	Metrics               *utils.Metrics
}

// Session is one user's workflow. Every transition runs under mu and
// completes before the next one starts; backend calls run outside the lock,
// so other actions stay available while a request is in flight.
type Session struct {
	id           string
	backend      backend.API
	platforms    *platform.Registry
	discardStale bool
	log          logrus.FieldLogger
	metrics      *utils.Metrics

	mu          sync.Mutex
	state       State
	seq         map[string]uint64
	lastSeen    time.Time
	subscribers map[chan PanelUpdate]struct{}
}

// NewSession builds a session in the initial page state.
func NewSession(opts Options) *Session {
	platforms := opts.Platforms
	if platforms == nil {
		platforms = platform.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		id:           opts.ID,
		backend:      opts.Backend,
		platforms:    platforms,
		discardStale: opts.DiscardStaleResponses,
		log:          logger.WithField("session", opts.ID),
		metrics:      opts.Metrics,
		state:        NewState(),
		seq:          make(map[string]uint64),
		lastSeen:     time.Now(),
		subscribers:  make(map[chan PanelUpdate]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Platforms returns the platform table the session offers.
func (s *Session) Platforms() *platform.Registry { return s.platforms }

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Touch records activity for idle expiry.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the last activity time.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Subscribe returns a channel that receives every panel change.
func (s *Session) Subscribe() chan PanelUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan PanelUpdate, 32)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops and closes ch.
func (s *Session) Unsubscribe(ch chan PanelUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// transition applies fn under the lock and notifies subscribers.
// fn returns the updates to publish; nil means nothing changed.
func (s *Session) transition(fn func(st *State) []PanelUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	updates := fn(&s.state)
	for _, u := range updates {
		u.SessionID = s.id
		for ch := range s.subscribers {
			// never block a transition on a slow reader
			select {
			case ch <- u:
			default:
			}
		}
	}
}

// begin allocates the next sequence number for an action. Call with mu held.
func (s *Session) begin(action string) uint64 {
	s.seq[action]++
	return s.seq[action]
}

// stale reports whether a response for seq must be dropped. Call with mu held.
func (s *Session) stale(action string, seq uint64) bool {
	return s.discardStale && s.seq[action] != seq
}

func (s *Session) settle(flow string, err error) {
	if err == nil {
		s.metrics.ObserveFlow(flow, "success")
		return
	}
	outcome := string(apperrors.TypeOf(err))
	s.metrics.ObserveFlow(flow, outcome)
	if errors.Is(err, ErrStaleResponse) {
		return
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"flow":       flow,
		"error_type": outcome,
	}).Error("flow failed")
}

// GenerateIdeas runs idea generation for topic.
func (s *Session) GenerateIdeas(ctx context.Context, topic string) (err error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}

	var seq uint64
	s.transition(func(st *State) []PanelUpdate {
		seq = s.begin(PanelIdeas)
		// everything downstream belongs to the previous topic
		st.Draft = DraftPanel{Status: StatusIdle}
		st.Specialist = SpecialistPanel{Results: map[string]*SpecializationResult{}, Epoch: st.Specialist.Epoch + 1}
		st.Ideas = IdeasPanel{Status: StatusLoading, Topic: topic}
		return []PanelUpdate{
			{Panel: PanelDraft, Status: StatusIdle},
			{Panel: PanelSpecialist, Status: StatusIdle},
			{Panel: PanelIdeas, Status: StatusLoading},
		}
	})

	ideas, callErr := s.backend.GenerateIdeas(ctx, models.IdeasRequest{Topic: topic})

	s.transition(func(st *State) []PanelUpdate {
		if s.stale(PanelIdeas, seq) {
			err = ErrStaleResponse
			return nil
		}
		// the panel is revealed on both branches
		st.Ideas.Visible = true
		if callErr != nil {
			err = callErr
			st.Ideas.Status = StatusError
			st.Ideas.Ideas = nil
			st.Ideas.Error = IdeasErrorMessage
			return []PanelUpdate{{Panel: PanelIdeas, Status: StatusError}}
		}
		st.Ideas.Status = StatusSuccess
		st.Ideas.Ideas = ideas
		st.Ideas.Error = ""
		return []PanelUpdate{{Panel: PanelIdeas, Status: StatusSuccess}}
	})
	s.settle(PanelIdeas, err)
	return err
}

// ParseIdeaID converts a textual idea id to the integer the backend expects.
func ParseIdeaID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewValidationError("idea id must be an integer", err)
	}
	return id, nil
}

// GenerateDraft writes a draft for one idea. On success the specialist
// panel is set up for the new draft.
func (s *Session) GenerateDraft(ctx context.Context, ref IdeaRef) (err error) {
	id, err := ParseIdeaID(ref.ID)
	if err != nil {
		return err
	}

	var (
		seq   uint64
		round uint64
		topic = strings.TrimSpace(ref.Topic)
		idea  = models.Idea{ID: id, Text: ref.Text}
	)
	s.transition(func(st *State) []PanelUpdate {
		if topic == "" {
			topic = st.Ideas.Topic
		}
		if topic == "" {
			err = apperrors.NewValidationError("no topic for draft generation", nil)
			return nil
		}
		seq = s.begin(PanelDraft)
		round = s.seq[PanelIdeas]
		st.Draft = DraftPanel{Visible: true, Status: StatusLoading, Topic: topic, Idea: &idea}
		// variants of the previous draft no longer apply
		st.Specialist = SpecialistPanel{Results: map[string]*SpecializationResult{}, Epoch: st.Specialist.Epoch + 1}
		return []PanelUpdate{
			{Panel: PanelSpecialist, Status: StatusIdle},
			{Panel: PanelDraft, Status: StatusLoading},
		}
	})
	if err != nil {
		return err
	}

	draft, callErr := s.backend.GenerateDraft(ctx, models.DraftRequest{Topic: topic, IdeaID: id, IdeaText: ref.Text})

	s.transition(func(st *State) []PanelUpdate {
		if s.seq[PanelIdeas] != round {
			// a newer idea generation cleared the draft and specialist panels
			err = ErrStaleResponse
			return nil
		}
		if s.stale(PanelDraft, seq) {
			err = ErrStaleResponse
			return nil
		}
		if callErr == nil && draft == nil {
			callErr = apperrors.NewEmptyError("backend returned no draft")
		}
		if callErr != nil {
			err = callErr
			st.Draft.Status = StatusError
			st.Draft.Text = ""
			st.Draft.Error = DraftErrorMessage
			return []PanelUpdate{{Panel: PanelDraft, Status: StatusError}}
		}
		st.Draft.Status = StatusSuccess
		st.Draft.DraftID = draft.DraftID
		st.Draft.Text = draft.Draft
		st.Draft.Error = ""
		s.setupSpecialists(st, draft.DraftID, draft.Draft)
		return []PanelUpdate{
			{Panel: PanelDraft, Status: StatusSuccess},
			{Panel: PanelSpecialist, Status: StatusSuccess},
		}
	})
	s.settle(PanelDraft, err)
	return err
}

// SetupSpecialists seeds the specialist panel with an existing draft, as
// after a successful draft generation. The CLI uses it for drafts made earlier.
func (s *Session) SetupSpecialists(draftID models.DraftID, draftText string) error {
	if draftID.IsZero() {
		return apperrors.NewValidationError("draft id is required", nil)
	}
	if strings.TrimSpace(draftText) == "" {
		return apperrors.NewValidationError("draft text is required", nil)
	}
	s.transition(func(st *State) []PanelUpdate {
		s.setupSpecialists(st, draftID, draftText)
		return []PanelUpdate{{Panel: PanelSpecialist, Status: StatusSuccess}}
	})
	return nil
}

func (s *Session) setupSpecialists(st *State, draftID models.DraftID, draftText string) {
	st.Specialist = SpecialistPanel{
		Visible:   true,
		DraftID:   draftID,
		DraftText: draftText,
		Platforms: s.platforms.All(),
		Results:   map[string]*SpecializationResult{},
		Epoch:     st.Specialist.Epoch + 1,
	}
}

// Specialize requests the variant of the current draft for one platform.
// Platforms are independent: each call only ever touches its own result box.
func (s *Session) Specialize(ctx context.Context, platformName string) (err error) {
	p, lookupErr := s.platforms.Lookup(platformName)
	if lookupErr != nil {
		return apperrors.NewValidationError("unknown platform", lookupErr)
	}
	action := PanelResult + ":" + p.Key

	var (
		seq   uint64
		epoch uint64
		req   models.SpecializeRequest
	)
	s.transition(func(st *State) []PanelUpdate {
		if !st.Specialist.Ready() {
			err = ErrNoDraft
			return nil
		}
		seq = s.begin(action)
		epoch = st.Specialist.Epoch
		req = models.SpecializeRequest{
			DraftID:   st.Specialist.DraftID,
			DraftText: st.Specialist.DraftText,
			Platform:  p.Key,
		}
		// find-if-present, create-if-absent: one box per platform
		result, ok := st.Specialist.Results[p.Key]
		if !ok {
			result = &SpecializationResult{Platform: p}
			st.Specialist.Results[p.Key] = result
		}
		result.Status = StatusLoading
		result.Seq = seq
		// previous text and error stay hidden behind the loading placeholder
		result.Text = ""
		result.Error = ""
		return []PanelUpdate{{Panel: PanelResult, Key: p.Key, Status: StatusLoading}}
	})
	if err != nil {
		return err
	}

	variant, callErr := s.backend.SpecializeDraft(ctx, req)
	if callErr == nil && variant == nil {
		callErr = apperrors.NewEmptyError("backend returned no " + p.Key + " draft")
	}

	s.transition(func(st *State) []PanelUpdate {
		if st.Specialist.Epoch != epoch {
			// the draft this box belonged to has been replaced
			err = ErrStaleResponse
			return nil
		}
		if s.stale(action, seq) {
			err = ErrStaleResponse
			s.metrics.ObserveStale(p.Key)
			return nil
		}
		result, ok := st.Specialist.Results[p.Key]
		if !ok {
			result = &SpecializationResult{Platform: p}
			st.Specialist.Results[p.Key] = result
		}
		result.Seq = seq
		if callErr != nil {
			err = callErr
			result.Status = StatusError
			result.Text = ""
			result.Error = SpecializationErrorMessage(p.Key)
			return []PanelUpdate{{Panel: PanelResult, Key: p.Key, Status: StatusError}}
		}
		result.Status = StatusSuccess
		result.Text = variant.SpecializedDraft
		result.Error = ""
		return []PanelUpdate{{Panel: PanelResult, Key: p.Key, Status: StatusSuccess}}
	})
	if err != nil && !errors.Is(err, ErrStaleResponse) {
		err = apperrors.WrapError(err, p.Key, apperrors.ErrorTypeError)
	}
	s.settle("specialize", err)
	return err
}

// SpecializeAll requests every platform concurrently, at most limit at a
// time, and returns each platform's outcome. One failure never cancels the others.
func (s *Session) SpecializeAll(ctx context.Context, limit int) map[string]error {
	return s.SpecializeEach(ctx, s.platforms.Keys(), limit)
}

// SpecializeEach is SpecializeAll for a chosen set of platforms.
// Results are keyed by the names as given.
func (s *Session) SpecializeEach(ctx context.Context, names []string, limit int) map[string]error {
	results := make(map[string]error, len(names))
	var mu sync.Mutex

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, name := range names {
		name := name
		g.Go(func() error {
			err := s.Specialize(ctx, name)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// LoadHistory fetches and stores the campaign history.
func (s *Session) LoadHistory(ctx context.Context) (err error) {
	var seq uint64
	s.transition(func(st *State) []PanelUpdate {
		seq = s.begin(PanelHistory)
		st.History = HistoryPanel{Status: StatusLoading}
		return []PanelUpdate{{Panel: PanelHistory, Status: StatusLoading}}
	})

	campaigns, callErr := s.backend.History(ctx)

	s.transition(func(st *State) []PanelUpdate {
		if s.stale(PanelHistory, seq) {
			err = ErrStaleResponse
			return nil
		}
		if callErr != nil {
			err = callErr
			// no partial output
			st.History = HistoryPanel{Status: StatusError, Error: HistoryErrorMessage}
			return []PanelUpdate{{Panel: PanelHistory, Status: StatusError}}
		}
		st.History = HistoryPanel{Status: StatusSuccess, Campaigns: campaigns}
		return []PanelUpdate{{Panel: PanelHistory, Status: StatusSuccess}}
	})
	s.settle(PanelHistory, err)
	return err
}
