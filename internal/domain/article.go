package domain

import "time"

// Article is the bibliographic record routed through the review queues.
type Article struct {
	ID                int64
	SourceID          string
	LegacyID          int64
	Title             string
	SearchTitle       string
	JournalTitle      string
	BriefJournalTitle string
	SourceJournalID   string
	Year              int
	Volume            string
	Issue             string
	Pagination        string
	FullTextFile      string
	Authors           []Author
	Types             []string
	Abstract          []AbstractParagraph
	Tags              []TagAssignment
	Topics            []ArticleTopic
	Related           []RelatedArticle
}

// HasFullText reports whether a full-text artifact has been stored.
func (a Article) HasFullText() bool {
	return a.FullTextFile != ""
}

// Author is one entry in the ordered author list.
type Author struct {
	LastName   string
	Initials   string
	SearchName string
}

// Display renders the author the way citations show it ("Smith JA").
func (a Author) Display() string {
	if a.Initials == "" {
		return a.LastName
	}
	return a.LastName + " " + a.Initials
}

// AbstractParagraph is one labeled section of the abstract.
type AbstractParagraph struct {
	Label string
	Text  string
}

// TagAssignment attaches a tag to an article or to an article-topic association.
type TagAssignment struct {
	TagID  int64
	Name   string
	Active bool
}

// ArticleTopic binds an article to a topic for one review cycle.
type ArticleTopic struct {
	ID           int64
	ArticleID    int64
	TopicID      int64
	TopicName    string
	BoardID      int64
	BoardName    string
	CycleID      int64
	CurrentState string
	Tags         []TagAssignment
	Comments     []string
}

// Topic returns the topic half of the association.
func (at ArticleTopic) Topic() Topic {
	return Topic{ID: at.TopicID, Name: at.TopicName, BoardID: at.BoardID, Active: true}
}

// RelatedArticle is the citation data needed for the related-articles list.
type RelatedArticle struct {
	ID                int64
	SourceID          string
	FirstAuthor       string
	BriefJournalTitle string
	Year              string
}

// StateRecord is one append-only entry in an association's workflow history.
type StateRecord struct {
	ID             int64
	StateID        int64
	ArticleID      int64
	TopicID        int64
	BoardID        int64
	ArticleTopicID int64
	ActorID        int64
	Entered        time.Time
	Current        bool
}

// StateTransition is a request to move one association into a new state.
// A non-zero FromStateID must match the association's current state.
type StateTransition struct {
	ArticleID   int64
	TopicID     int64
	FromStateID int64
	StateID     int64
	ActorID     int64
	Entered     time.Time
}

// StateType is one registered workflow state.
type StateType struct {
	ID       int64
	TextID   string
	Name     string
	Sequence int
}

// Topic belongs to exactly one board.
type Topic struct {
	ID          int64
	Name        string
	BoardID     int64
	Active      bool
	NCIReviewer int64
}

// Board groups topics.
type Board struct {
	ID   int64
	Name string
}

// Cycle is a periodic review batch.
type Cycle struct {
	ID   int64
	Name string
}

// Tag is an entry in the article tag vocabulary.
type Tag struct {
	ID   int64
	Name string
}

// TypeHierarchy maps a lowercased publication type to its ancestor types.
type TypeHierarchy map[string][]string

// AncestorsOf returns the ancestors recorded for the lowercased type name.
func (h TypeHierarchy) AncestorsOf(typeName string) []string {
	return h[typeName]
}
