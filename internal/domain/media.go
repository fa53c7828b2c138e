package domain

// MediaKind distinguishes the two page layouts the site serves
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "tv"
)

// MediaReference identifies one playable page on the site. PageID is the
// path component of the page URL, e.g. "/episode_1234567.html".
type MediaReference struct {
	PageID  string
	IsMovie bool
}

// NewMediaReference creates a reference from a page path. The kind is
// inferred from the path prefix unless the caller knows better.
func NewMediaReference(pageID string, isMovie bool) MediaReference {
	return MediaReference{
		PageID:  pageID,
		IsMovie: isMovie,
	}
}

// PlaybackInfo is the result of the token exchange: where the stream and
// the optional subtitle live. URLs are absolute. SubtitleURL is empty when
// no subtitle matched the configured language.
type PlaybackInfo struct {
	ManifestURL string
	SubtitleURL string
}

// SegmentDescriptor is one media segment in manifest order. SequenceIndex
// is the zero-based position of the reference line in the manifest; it is
// the reassembly contract and must survive out-of-order downloads.
type SegmentDescriptor struct {
	SequenceIndex int
	SourceURL     string
}

// JobState is the orchestrator's position in the retrieval pipeline.
type JobState string

const (
	StateResolving        JobState = "resolving"
	StateManifestFetched  JobState = "manifest_fetched"
	StateSegmentsFetching JobState = "segments_fetching"
	StateAssembling       JobState = "assembling"
	StateDone             JobState = "done"
	StateFailed           JobState = "failed"
)

// RetrievalJob carries the mutable state of one retrieval. The job owns
// WorkDir exclusively; the orchestrator removes it on every exit path.
type RetrievalJob struct {
	Ref        MediaReference
	Manifest   []SegmentDescriptor
	WorkDir    string
	OutputPath string
	State      JobState
}
