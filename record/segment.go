package record

// CreationReason is why a segment was opened: "init" for the first segment
// of a recording, otherwise the flush reason of its predecessor.
type CreationReason string

// FlushReason is why a segment was closed.
type FlushReason = CreationReason

const (
	ReasonInit                 CreationReason = "init"
	ReasonSegmentDurationLimit CreationReason = "segment_duration_limit"
	ReasonSegmentBytesLimit    CreationReason = "segment_bytes_limit"
	ReasonViewChange           CreationReason = "view_change"
	ReasonBeforeUnload         CreationReason = "before_unload"
	ReasonVisibilityHidden     CreationReason = "visibility_hidden"
	ReasonPageHide             CreationReason = "page_hide"
	ReasonPageFrozen           CreationReason = "page_frozen"
	ReasonStop                 CreationReason = "stop"
)

// IsPageExit reports whether the reason is one of the page-exit reasons,
// which use the exit-safe delivery path.
func (r CreationReason) IsPageExit() bool {
	switch r {
	case ReasonBeforeUnload, ReasonVisibilityHidden, ReasonPageHide, ReasonPageFrozen:
		return true
	}
	return false
}

// IDRef is the {"id": ...} object used for context references.
type IDRef struct {
	ID string `json:"id"`
}

// SegmentContext identifies the application, session and view a segment
// belongs to.
type SegmentContext struct {
	Application IDRef `json:"application"`
	Session     IDRef `json:"session"`
	View        IDRef `json:"view"`
}

// SegmentMetadata is appended after the records array of every segment
// body.
type SegmentMetadata struct {
	SegmentContext
	Start           int64          `json:"start"`
	End             int64          `json:"end"`
	RecordsCount    int            `json:"records_count"`
	CreationReason  CreationReason `json:"creation_reason"`
	HasFullSnapshot bool           `json:"has_full_snapshot"`
	IndexInView     int            `json:"index_in_view"`
	Source          string         `json:"source"`
}

// EventMetadata is the JSON part of an upload: the segment metadata plus
// its raw and compressed sizes.
type EventMetadata struct {
	SegmentMetadata
	RawSegmentSize        int `json:"raw_segment_size"`
	CompressedSegmentSize int `json:"compressed_segment_size"`
}
