package shift

import "sync"

// ConversationID identifies one operator conversation, e.g. a Telegram chat.
type ConversationID int64

// DraftKind is the step a multi-step input workflow is waiting on.
type DraftKind int

const (
	NoDraft DraftKind = iota
	AwaitingCustomName
	AwaitingCustomPrice
	AwaitingMixedCash
	AwaitingExchangeCash
)

func (k DraftKind) String() string {
	switch k {
	case AwaitingCustomName:
		return "awaiting_custom_name"
	case AwaitingCustomPrice:
		return "awaiting_custom_price"
	case AwaitingMixedCash:
		return "awaiting_mixed_cash"
	case AwaitingExchangeCash:
		return "awaiting_exchange_cash"
	default:
		return "none"
	}
}

// Draft is the pending input of one conversation. Name is set for
// AwaitingCustomPrice and Total for AwaitingMixedCash.
type Draft struct {
	Kind  DraftKind
	Name  string
	Total int64
}

type drafts struct {
	mu sync.Mutex
	m  map[ConversationID]Draft
}

func newDrafts() *drafts {
	return &drafts{m: make(map[ConversationID]Draft)}
}

func (d *drafts) get(conv ConversationID) Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m[conv]
}

func (d *drafts) set(conv ConversationID, draft Draft) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if draft.Kind == NoDraft {
		delete(d.m, conv)
		return
	}
	d.m[conv] = draft
}

func (d *drafts) clear(conv ConversationID) {
	d.set(conv, Draft{})
}

func (d *drafts) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m = make(map[ConversationID]Draft)
}
