// CLAUDE:SUMMARY Wire contract of replay records, serialized nodes, flush reasons and segment metadata.
// Package record defines the wire contract of the replay stream: records,
// serialized nodes, incremental payloads and segment metadata. Every type
// here marshals to the JSON shape consumed by the replay player; records
// reference nodes by id only.
package record

// Type discriminates top-level records.
type Type int

const (
	TypeFullSnapshot        Type = 2
	TypeIncrementalSnapshot Type = 3
	TypeMeta                Type = 4
	TypeFocus               Type = 6
	TypeViewEnd             Type = 7
	TypeVisualViewport      Type = 8
	TypeFrustration         Type = 9
)

func (t Type) String() string {
	switch t {
	case TypeFullSnapshot:
		return "full_snapshot"
	case TypeIncrementalSnapshot:
		return "incremental_snapshot"
	case TypeMeta:
		return "meta"
	case TypeFocus:
		return "focus"
	case TypeViewEnd:
		return "view_end"
	case TypeVisualViewport:
		return "visual_viewport"
	case TypeFrustration:
		return "frustration"
	}
	return "unknown"
}

// Record is one entry of a segment. Data holds the type-specific payload;
// ID is the correlation id some interaction records carry.
type Record struct {
	Type      Type  `json:"type"`
	Timestamp int64 `json:"timestamp"`
	Data      any   `json:"data,omitempty"`
	ID        *int  `json:"id,omitempty"`
}

// MetaData is the payload of a Meta record.
type MetaData struct {
	Href   string  `json:"href"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FocusData is the payload of a Focus record.
type FocusData struct {
	HasFocus bool `json:"has_focus"`
}

// Offset is a scroll offset.
type Offset struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// FullSnapshotData is the payload of a FullSnapshot record.
type FullSnapshotData struct {
	Node          *Document `json:"node"`
	InitialOffset Offset    `json:"initialOffset"`
}

// VisualViewportData is the payload of a VisualViewport record.
type VisualViewportData struct {
	Scale      float64 `json:"scale"`
	OffsetLeft float64 `json:"offsetLeft"`
	OffsetTop  float64 `json:"offsetTop"`
	PageLeft   float64 `json:"pageLeft"`
	PageTop    float64 `json:"pageTop"`
	Height     float64 `json:"height"`
	Width      float64 `json:"width"`
}

// FrustrationType names a detected frustration signal.
type FrustrationType string

const (
	FrustrationRageClick  FrustrationType = "rage_click"
	FrustrationDeadClick  FrustrationType = "dead_click"
	FrustrationErrorClick FrustrationType = "error_click"
)

// FrustrationData is the payload of a FrustrationRecord.
type FrustrationData struct {
	FrustrationTypes []FrustrationType `json:"frustrationTypes"`
	RecordIDs        []int             `json:"recordIds"`
}

// Meta builds a Meta record.
func Meta(ts int64, href string, width, height float64) Record {
	return Record{Type: TypeMeta, Timestamp: ts, Data: MetaData{Href: href, Width: width, Height: height}}
}

// Focus builds a Focus record.
func Focus(ts int64, hasFocus bool) Record {
	return Record{Type: TypeFocus, Timestamp: ts, Data: FocusData{HasFocus: hasFocus}}
}

// FullSnapshot builds a FullSnapshot record.
func FullSnapshot(ts int64, node *Document, offset Offset) Record {
	return Record{Type: TypeFullSnapshot, Timestamp: ts, Data: FullSnapshotData{Node: node, InitialOffset: offset}}
}

// Incremental builds an IncrementalSnapshot record.
func Incremental(ts int64, data IncrementalData) Record {
	return Record{Type: TypeIncrementalSnapshot, Timestamp: ts, Data: data}
}

// ViewEnd builds a ViewEnd record.
func ViewEnd(ts int64) Record {
	return Record{Type: TypeViewEnd, Timestamp: ts}
}

// VisualViewport builds a VisualViewport record.
func VisualViewport(ts int64, d VisualViewportData) Record {
	return Record{Type: TypeVisualViewport, Timestamp: ts, Data: d}
}

// Frustration builds a FrustrationRecord.
func Frustration(ts int64, types []FrustrationType, recordIDs []int) Record {
	if recordIDs == nil {
		recordIDs = []int{}
	}
	return Record{Type: TypeFrustration, Timestamp: ts, Data: FrustrationData{FrustrationTypes: types, RecordIDs: recordIDs}}
}

// IsFullSnapshot reports whether r is a full snapshot.
func (r Record) IsFullSnapshot() bool { return r.Type == TypeFullSnapshot }

// Source returns the incremental source of r, or -1.
func (r Record) Source() Source {
	if d, ok := r.Data.(IncrementalData); ok && r.Type == TypeIncrementalSnapshot {
		return d.IncrementalSource()
	}
	return -1
}
