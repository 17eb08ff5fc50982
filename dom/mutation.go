package dom

// MutationType names the kind of a MutationRecord.
type MutationType string

const (
	MutationAttributes    MutationType = "attributes"
	MutationCharacterData MutationType = "characterData"
	MutationChildList     MutationType = "childList"
)

// MutationRecord describes one change, as delivered to MutationObservers.
type MutationRecord struct {
	Type            MutationType
	Target          *Node
	AttributeName   string
	OldValue        *string
	AddedNodes      []*Node
	RemovedNodes    []*Node
	PreviousSibling *Node
	NextSibling     *Node
}

// MutationCallback receives the records queued since the last delivery.
type MutationCallback func(records []MutationRecord)

// MutationObserver observes subtrees of one document. Observation is
// always subtree-wide with old values for attributes and character data.
type MutationObserver struct {
	doc      *Document
	callback MutationCallback
	targets  []*Node
	pending  []MutationRecord
}

// NewMutationObserver registers an observer on d. It receives nothing until
// Observe is called.
func (d *Document) NewMutationObserver(cb MutationCallback) *MutationObserver {
	return &MutationObserver{doc: d, callback: cb}
}

// Observe adds target (the document node or a shadow root, usually) to the
// observed set.
func (o *MutationObserver) Observe(target *Node) {
	for _, t := range o.targets {
		if t == target {
			return
		}
	}
	if len(o.targets) == 0 {
		o.doc.observers = append(o.doc.observers, o)
	}
	o.targets = append(o.targets, target)
}

// TakeRecords returns and clears the records not yet delivered.
func (o *MutationObserver) TakeRecords() []MutationRecord {
	recs := o.pending
	o.pending = nil
	return recs
}

// Disconnect stops observation and drops undelivered records.
func (o *MutationObserver) Disconnect() {
	o.targets = nil
	o.pending = nil
	obs := o.doc.observers[:0]
	for _, other := range o.doc.observers {
		if other != o {
			obs = append(obs, other)
		}
	}
	o.doc.observers = obs
}

func (o *MutationObserver) observes(n *Node) bool {
	for _, t := range o.targets {
		if t.Contains(n) {
			return true
		}
	}
	return false
}

func (d *Document) queueMutation(rec MutationRecord) {
	for _, o := range d.observers {
		if o.observes(rec.Target) {
			o.pending = append(o.pending, rec)
		}
	}
}

// deliverMutations runs the microtask checkpoint: observers with pending
// records are called until no callback queues more.
func (d *Document) deliverMutations() {
	for rounds := 0; rounds < 64; rounds++ {
		delivered := false
		for _, o := range append([]*MutationObserver(nil), d.observers...) {
			if len(o.pending) == 0 {
				continue
			}
			recs := o.TakeRecords()
			delivered = true
			o.callback(recs)
		}
		if !delivered {
			return
		}
	}
}
