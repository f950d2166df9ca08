package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// Workflow states referenced by the review queues.
const (
	StateReadyInitReview  = "ready_init_review"
	StateRejectInitReview = "reject_init_review"
	StatePassedInitReview = "passed_init_review"
	StatePublished        = "published"
	StateRejectBMReview   = "reject_bm_review"
	StatePassedBMReview   = "passed_bm_review"
	StateFYI              = "fyi"
	StateOnHold           = "on_hold"
	StateRejectFullReview = "reject_full_review"
	StatePassedFullReview = "passed_full_review"
)

// QueueType is one of the four review stages.
type QueueType string

const (
	LibrarianReview QueueType = "Librarian Review"
	AbstractReview  QueueType = "Abstract Review"
	FullTextReview  QueueType = "Full Text Review"
	OnHoldReview    QueueType = "On Hold Review"
)

// QueueTypes lists the queue types in display order.
var QueueTypes = []QueueType{LibrarianReview, AbstractReview, FullTextReview, OnHoldReview}

var queueStates = map[QueueType]string{
	LibrarianReview: StateReadyInitReview,
	AbstractReview:  StatePublished,
	FullTextReview:  StatePassedBMReview,
	OnHoldReview:    StateOnHold,
}

var queuePermissions = map[QueueType]string{
	LibrarianReview: PermInitialReview,
	AbstractReview:  PermAbstractReview,
	FullTextReview:  PermFullTextReview,
	OnHoldReview:    PermFullTextReview,
}

// ParseQueueType validates a queue type name.
func ParseQueueType(name string) (QueueType, error) {
	qt := QueueType(name)
	if _, ok := queueStates[qt]; !ok {
		return "", &UnknownQueueTypeError{Name: name}
	}
	return qt, nil
}

// TargetState is the symbolic state whose articles populate the queue.
func (q QueueType) TargetState() (string, error) {
	state, ok := queueStates[q]
	if !ok {
		return "", &UnknownQueueTypeError{Name: string(q)}
	}
	return state, nil
}

// Permission is the permission needed to work the queue.
func (q QueueType) Permission() (string, error) {
	perm, ok := queuePermissions[q]
	if !ok {
		return "", &UnknownQueueTypeError{Name: string(q)}
	}
	return perm, nil
}

// Decision is the code carried by a decision button.
type Decision int

const (
	DecisionNone    Decision = 0
	DecisionFYI     Decision = 1
	DecisionOnHold  Decision = 2
	DecisionReject  Decision = 3
	DecisionApprove Decision = 4
)

var decisionLabels = map[Decision]string{
	DecisionNone:    "None",
	DecisionFYI:     "FYI",
	DecisionOnHold:  "On Hold",
	DecisionReject:  "Reject",
	DecisionApprove: "Approve",
}

// Label is the button text for the decision.
func (d Decision) Label() string {
	if label, ok := decisionLabels[d]; ok {
		return label
	}
	return "Unrecognized Decision"
}

// decisionStates is keyed by decision code, never by button position.
var decisionStates = map[QueueType]map[Decision]string{
	LibrarianReview: {
		DecisionReject:  StateRejectInitReview,
		DecisionApprove: StatePassedInitReview,
	},
	AbstractReview: {
		DecisionReject:  StateRejectBMReview,
		DecisionApprove: StatePassedBMReview,
	},
	FullTextReview: {
		DecisionFYI:     StateFYI,
		DecisionOnHold:  StateOnHold,
		DecisionReject:  StateRejectFullReview,
		DecisionApprove: StatePassedFullReview,
	},
	OnHoldReview: {
		DecisionReject:  StateRejectFullReview,
		DecisionApprove: StatePassedFullReview,
	},
}

// DecisionState maps a decision code to the state it produces for the queue type.
func DecisionState(q QueueType, d Decision) (string, error) {
	table, ok := decisionStates[q]
	if !ok {
		return "", &UnknownQueueTypeError{Name: string(q)}
	}
	state, ok := table[d]
	if !ok {
		return "", &InvalidDecisionCodeError{QueueType: q, Code: d}
	}
	return state, nil
}

var (
	fullActions    = []Decision{DecisionNone, DecisionFYI, DecisionOnHold, DecisionReject, DecisionApprove}
	reducedActions = []Decision{DecisionNone, DecisionReject, DecisionApprove}
)

// ActionsFor lists the decisions offered for associations in the given state.
func ActionsFor(state string) []Decision {
	if state == StatePassedBMReview {
		return append([]Decision(nil), fullActions...)
	}
	return append([]Decision(nil), reducedActions...)
}

// DecisionKey identifies one (article, topic) pair in a decision batch.
type DecisionKey struct {
	ArticleID int64
	TopicID   int64
}

var decisionKeyExpr = regexp.MustCompile(`^(?:topic-action-)?(\d+)\|(\d+)$`)

// ParseDecisionKey accepts "12|7" as well as the "topic-action-12|7" field name.
func ParseDecisionKey(raw string) (DecisionKey, error) {
	m := decisionKeyExpr.FindStringSubmatch(raw)
	if m == nil {
		return DecisionKey{}, fmt.Errorf("malformed decision key %q", raw)
	}
	articleID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return DecisionKey{}, fmt.Errorf("decision key %q: %w", raw, err)
	}
	topicID, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return DecisionKey{}, fmt.Errorf("decision key %q: %w", raw, err)
	}
	return DecisionKey{ArticleID: articleID, TopicID: topicID}, nil
}

// String renders the key as "article|topic".
func (k DecisionKey) String() string {
	return strconv.FormatInt(k.ArticleID, 10) + "|" + strconv.FormatInt(k.TopicID, 10)
}

// MarshalText lets decision maps serialize with string keys.
func (k DecisionKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses keys produced by MarshalText.
func (k *DecisionKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDecisionKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Display options.
const (
	FormatBrief    = "brief"
	FormatAbstract = "abstract"

	ReviewBoardsAll  = "all"
	ReviewBoardsMine = "mine"

	DefaultPageSize = 10
	DefaultSort     = "state.article"
)

// PageSizes are the page sizes offered to reviewers.
var PageSizes = []int{10, 25, 50, 100}

// QueueSpecification is the stored state of one review queue. Updates never
// mutate a stored value; they produce a new version under a new id.
type QueueSpecification struct {
	QueueType       QueueType                `json:"type"`
	Board           int64                    `json:"board"`
	Topics          []int64                  `json:"topic"`
	Cycle           int64                    `json:"cycle"`
	Tag             int64                    `json:"tag"`
	TitleFilter     string                   `json:"title"`
	JournalFilter   string                   `json:"journal"`
	SortKey         string                   `json:"sort"`
	Format          string                   `json:"format"`
	PageSize        int                      `json:"per-page"`
	ReviewBoards    string                   `json:"review-boards"`
	QueuedDecisions map[DecisionKey]Decision `json:"decisions"`
	Filtered        bool                     `json:"filtered"`
	Owner           int64                    `json:"owner"`
	Version         int                      `json:"version"`
	Parent          string                   `json:"parent,omitempty"`
}

// Clone returns a deep copy so callers can derive a new version safely.
func (s QueueSpecification) Clone() QueueSpecification {
	out := s
	out.Topics = append([]int64(nil), s.Topics...)
	out.QueuedDecisions = make(map[DecisionKey]Decision, len(s.QueuedDecisions))
	for k, v := range s.QueuedDecisions {
		out.QueuedDecisions[k] = v
	}
	return out
}

// Next derives the successor version recorded under parentID.
func (s QueueSpecification) Next(parentID string) QueueSpecification {
	out := s.Clone()
	out.Version = s.Version + 1
	out.Parent = parentID
	return out
}
