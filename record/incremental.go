package record

import (
	"encoding/json"
	"fmt"
)

// Source tags the payload of an IncrementalSnapshot record.
type Source int

const (
	SourceMutation         Source = 0
	SourceMouseMove        Source = 1
	SourceMouseInteraction Source = 2
	SourceScroll           Source = 3
	SourceViewportResize   Source = 4
	SourceInput            Source = 5
	SourceTouchMove        Source = 6
	SourceMediaInteraction Source = 7
	SourceStyleSheetRule   Source = 8
)

// IncrementalData is implemented by every incremental payload.
type IncrementalData interface {
	IncrementalSource() Source
}

// AddedNode is a node inserted under ParentID, before NextID (nil: appended).
type AddedNode struct {
	ParentID int  `json:"parentId"`
	NextID   *int `json:"nextId"`
	Node     Node `json:"node"`
}

// RemovedNode is a node detached from ParentID.
type RemovedNode struct {
	ParentID int `json:"parentId"`
	ID       int `json:"id"`
}

// TextMutation is a character-data change.
type TextMutation struct {
	ID    int     `json:"id"`
	Value *string `json:"value"`
}

// AttributeMutation lists changed attributes of one element; a nil value
// marks a removed attribute.
type AttributeMutation struct {
	ID         int                `json:"id"`
	Attributes map[string]*string `json:"attributes"`
}

// MutationData is the payload of a Mutation incremental record.
type MutationData struct {
	Source     Source              `json:"source"`
	Adds       []AddedNode         `json:"adds"`
	Removes    []RemovedNode       `json:"removes"`
	Texts      []TextMutation      `json:"texts"`
	Attributes []AttributeMutation `json:"attributes"`
}

// Empty reports whether the batch carries no change.
func (m MutationData) Empty() bool {
	return len(m.Adds) == 0 && len(m.Removes) == 0 && len(m.Texts) == 0 && len(m.Attributes) == 0
}

// MousePosition is one pointer position sample.
type MousePosition struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	ID         int     `json:"id"`
	TimeOffset int64   `json:"timeOffset"`
}

// MoveData is the payload of MouseMove and TouchMove records.
type MoveData struct {
	Source    Source          `json:"source"`
	Positions []MousePosition `json:"positions"`
}

// MouseInteractionType identifies the interaction of a MouseInteraction.
type MouseInteractionType int

const (
	MouseUp     MouseInteractionType = 0
	MouseDown   MouseInteractionType = 1
	Click       MouseInteractionType = 2
	ContextMenu MouseInteractionType = 3
	DblClick    MouseInteractionType = 4
	FocusIn     MouseInteractionType = 5
	BlurOut     MouseInteractionType = 6
	TouchStart  MouseInteractionType = 7
	TouchEnd    MouseInteractionType = 9
)

// MouseInteractionData is the payload of a MouseInteraction record.
// Coordinates are absent for focus and blur.
type MouseInteractionData struct {
	Source Source               `json:"source"`
	Type   MouseInteractionType `json:"type"`
	ID     int                  `json:"id"`
	X      *float64             `json:"x,omitempty"`
	Y      *float64             `json:"y,omitempty"`
}

// ScrollData is the payload of a Scroll record.
type ScrollData struct {
	Source Source  `json:"source"`
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ViewportResizeData is the payload of a ViewportResize record.
type ViewportResizeData struct {
	Source Source  `json:"source"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// InputData is the payload of an Input record: Text for value-bearing
// controls, IsChecked for radios and checkboxes.
type InputData struct {
	Source    Source  `json:"source"`
	ID        int     `json:"id"`
	Text      *string `json:"text,omitempty"`
	IsChecked *bool   `json:"isChecked,omitempty"`
}

// MediaInteractionType identifies play/pause.
type MediaInteractionType int

const (
	MediaPlay  MediaInteractionType = 0
	MediaPause MediaInteractionType = 1
)

// MediaInteractionData is the payload of a MediaInteraction record.
type MediaInteractionData struct {
	Source Source               `json:"source"`
	ID     int                  `json:"id"`
	Type   MediaInteractionType `json:"type"`
}

// RuleIndex locates a rule: a single top-level index, or the path of
// indexes through nested grouping rules. It marshals to a number or an
// array accordingly.
type RuleIndex []int

func (r RuleIndex) MarshalJSON() ([]byte, error) {
	if len(r) == 1 {
		return json.Marshal(r[0])
	}
	return json.Marshal([]int(r))
}

func (r *RuleIndex) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*r = RuleIndex{n}
		return nil
	}
	var path []int
	if err := json.Unmarshal(b, &path); err != nil {
		return fmt.Errorf("record: rule index: %w", err)
	}
	*r = path
	return nil
}

// StyleSheetAdd is an inserted rule.
type StyleSheetAdd struct {
	Rule  string    `json:"rule"`
	Index RuleIndex `json:"index,omitempty"`
}

// StyleSheetDelete is a removed rule.
type StyleSheetDelete struct {
	Index RuleIndex `json:"index"`
}

// StyleSheetRuleData is the payload of a StyleSheetRule record.
type StyleSheetRuleData struct {
	Source  Source             `json:"source"`
	ID      int                `json:"id"`
	Adds    []StyleSheetAdd    `json:"adds,omitempty"`
	Removes []StyleSheetDelete `json:"removes,omitempty"`
}

func (MutationData) IncrementalSource() Source         { return SourceMutation }
func (d MoveData) IncrementalSource() Source           { return d.Source }
func (MouseInteractionData) IncrementalSource() Source { return SourceMouseInteraction }
func (ScrollData) IncrementalSource() Source           { return SourceScroll }
func (ViewportResizeData) IncrementalSource() Source   { return SourceViewportResize }
func (InputData) IncrementalSource() Source            { return SourceInput }
func (MediaInteractionData) IncrementalSource() Source { return SourceMediaInteraction }
func (StyleSheetRuleData) IncrementalSource() Source   { return SourceStyleSheetRule }

var sourceNames = [...]string{
	SourceMutation:         "mutation",
	SourceMouseMove:        "mouse_move",
	SourceMouseInteraction: "mouse_interaction",
	SourceScroll:           "scroll",
	SourceViewportResize:   "viewport_resize",
	SourceInput:            "input",
	SourceTouchMove:        "touch_move",
	SourceMediaInteraction: "media_interaction",
	SourceStyleSheetRule:   "stylesheet_rule",
}

func (s Source) String() string {
	if s >= 0 && int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "unknown"
}
