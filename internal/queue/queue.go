// Package queue holds the tracks waiting to be played in a guild.
// The head of the queue is the track that is playing, or about to play.
package queue

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/generator"
)

var ErrQueueEmpty = errors.New("queue is empty")

// IndexError is returned when an index does not point into the queue.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d is out of range for a queue of %d", e.Index, e.Len)
}

var _ error = (*IndexError)(nil)

type Item struct {
	ID      string
	Source  audiosource.AudioSource
	AddedBy string
}

// ExportedItem is the serializable form of an Item.
type ExportedItem struct {
	ID      string               `json:"id"`
	AddedBy string               `json:"addedBy"`
	Source  audiosource.Exported `json:"source"`
}

type Queue struct {
	mu        sync.RWMutex
	items     []Item
	loop      bool
	queueLoop bool
	ids       generator.Generator[string]
}

func New(ids generator.Generator[string]) *Queue {
	if ids == nil {
		ids = &generator.UUIDV4Generator{}
	}
	return &Queue{ids: ids}
}

// Add appends source to the queue, or inserts it right after the head when front is set.
func (q *Queue) Add(source audiosource.AudioSource, addedBy string, front bool) (Item, error) {
	item, err := q.newItem(source, addedBy)
	if err != nil {
		return Item{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if front && len(q.items) > 0 {
		q.items = slices.Insert(q.items, 1, item)
	} else {
		q.items = append(q.items, item)
	}
	return item, nil
}

// Insert puts source at index i, clamped to the queue bounds.
func (q *Queue) Insert(source audiosource.AudioSource, addedBy string, i int) (Item, error) {
	item, err := q.newItem(source, addedBy)
	if err != nil {
		return Item{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	i = min(max(i, 0), len(q.items))
	q.items = slices.Insert(q.items, i, item)
	return item, nil
}

func (q *Queue) newItem(source audiosource.AudioSource, addedBy string) (Item, error) {
	id, err := q.ids.Next()
	if err != nil {
		return Item{}, fmt.Errorf("failed to generate queue item id: %w", err)
	}
	return Item{ID: id, Source: source, AddedBy: addedBy}, nil
}

func (q *Queue) Get(i int) (Item, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if i < 0 || i >= len(q.items) {
		return Item{}, &IndexError{Index: i, Len: len(q.items)}
	}
	return q.items[i], nil
}

// Current returns the head of the queue.
func (q *Queue) Current() (Item, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.items) == 0 {
		return Item{}, ErrQueueEmpty
	}
	return q.items[0], nil
}

// Next moves past the head and returns the new head.
// With loop on the head stays, with queue loop on it moves to the back.
func (q *Queue) Next() (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, ErrQueueEmpty
	}

	switch {
	case q.loop:
	case q.queueLoop:
		head := q.items[0]
		q.items = append(q.items[1:], head)
	default:
		q.items = q.items[1:]
	}

	if len(q.items) == 0 {
		return Item{}, ErrQueueEmpty
	}
	return q.items[0], nil
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Items returns a copy of the queue contents.
func (q *Queue) Items() []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()

	items := make([]Item, len(q.items))
	copy(items, q.items)
	return items
}

func (q *Queue) Remove(i int) (Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i < 0 || i >= len(q.items) {
		return Item{}, &IndexError{Index: i, Len: len(q.items)}
	}
	item := q.items[i]
	q.items = slices.Delete(q.items, i, i+1)
	return item, nil
}

// URLs lists the url of every queued track in order.
func (q *Queue) URLs() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	urls := make([]string, 0, len(q.items))
	for _, item := range q.items {
		urls = append(urls, item.Source.URL())
	}
	return urls
}

func (q *Queue) SetLoop(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loop = on
}

func (q *Queue) Loop() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loop
}

func (q *Queue) SetQueueLoop(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queueLoop = on
}

func (q *Queue) QueueLoop() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.queueLoop
}

// Looping reports whether either kind of loop is on.
func (q *Queue) Looping() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loop || q.queueLoop
}

func (q *Queue) Export() []ExportedItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	exported := make([]ExportedItem, 0, len(q.items))
	for _, item := range q.items {
		exported = append(exported, ExportedItem{
			ID:      item.ID,
			AddedBy: item.AddedBy,
			Source:  item.Source.Export(),
		})
	}
	return exported
}

// Replace swaps the queue contents for items, keeping the loop settings.
func (q *Queue) Replace(items []Item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]Item(nil), items...)
}
