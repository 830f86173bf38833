// Package cart owns the in-memory cart for each active session and keeps it
// reconciled with the device-local snapshot and the remote store. Local
// writes are synchronous with every mutation; remote writes are debounced, so
// a short window where remote and local diverge is accepted, not a bug.
package cart

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pawmart/apperr"
	"pawmart/localcache"
	"pawmart/models"
	"pawmart/remstore"
	"pawmart/stock"
)

const DefaultDebounce = 500 * time.Millisecond

type Notifier interface {
	Push(identity, level, message string)
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*session

	remote   remstore.Store
	local    localcache.Cache
	guard    *stock.Guard
	notifier Notifier
	debounce time.Duration
}

// session is one device/tab. Each session is single-threaded from the
// caller's point of view; races come from other sessions sharing stock.
type session struct {
	deviceID  string
	userID    string // empty when signed out
	lines     []models.CartLine
	syncTimer *time.Timer
}

func NewStore(remote remstore.Store, local localcache.Cache, guard *stock.Guard, notifier Notifier, debounce time.Duration) *Store {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Store{
		sessions: make(map[string]*session),
		remote:   remote,
		local:    local,
		guard:    guard,
		notifier: notifier,
		debounce: debounce,
	}
}

func (s *Store) push(identity, level, message string) {
	if s.notifier != nil {
		s.notifier.Push(identity, level, message)
	}
}

// Initialize starts (or restarts) the session for a device. Signed-in
// identities load the remote cart, creating an empty one on first use, and
// mirror it locally. Signed-out identities load the device snapshot only and
// skip all remote traffic from then on.
func (s *Store) Initialize(ctx context.Context, deviceID, userID string) ([]models.CartLine, error) {
	sess := &session{deviceID: deviceID, userID: userID, lines: []models.CartLine{}}

	if userID == "" {
		lines, err := s.local.ReadCart(deviceID)
		if err != nil {
			log.Printf("cart: local cache read for %s failed: %v", deviceID, err)
			lines = []models.CartLine{}
		}
		sess.lines = lines
	} else {
		var doc models.CartDoc
		err := s.remote.Get(ctx, remstore.Carts, userID, &doc)
		switch err {
		case nil:
			sess.lines = doc.Items
		case remstore.ErrNotFound:
			doc = models.CartDoc{UserID: userID, Items: []models.CartLine{}, UpdatedAt: time.Now()}
			if err := s.remote.Set(ctx, remstore.Carts, userID, doc); err != nil {
				return nil, apperr.Transport("cart.initialize", err)
			}
		default:
			return nil, apperr.Transport("cart.initialize", err)
		}
		if sess.lines == nil {
			sess.lines = []models.CartLine{}
		}
		if err := s.local.WriteCart(deviceID, sess.lines); err != nil {
			log.Printf("cart: local cache write for %s failed: %v", deviceID, err)
		}
	}

	s.mu.Lock()
	if old, ok := s.sessions[deviceID]; ok && old.syncTimer != nil {
		old.syncTimer.Stop()
	}
	s.sessions[deviceID] = sess
	s.mu.Unlock()

	return s.Lines(deviceID), nil
}

// ensure returns the session for a device, creating an anonymous one seeded
// from the local snapshot when Initialize was never called.
func (s *Store) ensure(deviceID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[deviceID]; ok {
		return sess
	}
	lines, err := s.local.ReadCart(deviceID)
	if err != nil {
		lines = []models.CartLine{}
	}
	sess := &session{deviceID: deviceID, lines: lines}
	s.sessions[deviceID] = sess
	return sess
}

// AddItem puts one (or requestedQty) units of a product in the cart, capped
// by current stock. An existing line grows only if the grown quantity still
// fits the stock ceiling; otherwise the line is left unchanged.
func (s *Store) AddItem(ctx context.Context, deviceID, productID string, requestedQty int) error {
	if requestedQty <= 0 {
		requestedQty = 1
	}
	sess := s.ensure(deviceID)

	product, err := s.guard.Product(ctx, productID)
	if err != nil {
		s.push(deviceID, "error", "Could not add item: product not found.")
		return err
	}
	if product.Stock <= 0 {
		s.push(deviceID, "error", fmt.Sprintf("%s is out of stock.", product.Name))
		return fmt.Errorf("%s is out of stock: %w", product.Name, apperr.ErrOutOfStock)
	}

	s.mu.Lock()
	found := false
	for i := range sess.lines {
		if sess.lines[i].ProductID != productID {
			continue
		}
		found = true
		if sess.lines[i].Quantity+requestedQty > product.Stock {
			s.mu.Unlock()
			s.push(deviceID, "error", fmt.Sprintf("Only %d %s left.", product.Stock, product.Name))
			return fmt.Errorf("%s: only %d left: %w", product.Name, product.Stock, apperr.ErrInsufficientStock)
		}
		sess.lines[i].Quantity += requestedQty
		break
	}
	if !found {
		qty := requestedQty
		if qty > product.Stock {
			qty = product.Stock
		}
		sess.lines = append(sess.lines, models.CartLine{
			ProductID: productID,
			Name:      product.Name,
			Price:     product.Price, // snapshot, not live-linked
			Quantity:  qty,
			AddedAt:   time.Now(),
		})
	}
	s.mu.Unlock()

	s.afterMutation(sess)
	s.push(deviceID, "success", fmt.Sprintf("%s added to cart.", product.Name))
	return nil
}

// UpdateQuantity applies delta to a line. A resulting quantity of zero or
// below removes the line; the cart has no zero-quantity state. Positive
// deltas re-validate against current stock, negative ones never need to.
func (s *Store) UpdateQuantity(ctx context.Context, deviceID, productID string, delta int) error {
	sess := s.ensure(deviceID)

	if delta > 0 {
		s.mu.Lock()
		var current int
		for i := range sess.lines {
			if sess.lines[i].ProductID == productID {
				current = sess.lines[i].Quantity
				break
			}
		}
		s.mu.Unlock()

		ok, available, err := s.guard.CheckAvailable(ctx, productID, current+delta)
		if err != nil {
			return err
		}
		if !ok {
			s.push(deviceID, "error", fmt.Sprintf("Only %d left.", available))
			return fmt.Errorf("only %d left, wanted %d: %w", available, current+delta, apperr.ErrInsufficientStock)
		}
	}

	s.mu.Lock()
	for i := range sess.lines {
		if sess.lines[i].ProductID != productID {
			continue
		}
		newQty := sess.lines[i].Quantity + delta
		if newQty <= 0 {
			sess.lines = append(sess.lines[:i], sess.lines[i+1:]...)
		} else {
			sess.lines[i].Quantity = newQty
		}
		break
	}
	s.mu.Unlock()

	s.afterMutation(sess)
	return nil
}

// RemoveItem deletes the line unconditionally. Idempotent.
func (s *Store) RemoveItem(deviceID, productID string) {
	sess := s.ensure(deviceID)

	s.mu.Lock()
	var removed string
	for i := range sess.lines {
		if sess.lines[i].ProductID == productID {
			removed = sess.lines[i].Name
			sess.lines = append(sess.lines[:i], sess.lines[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.afterMutation(sess)
	if removed != "" {
		s.push(deviceID, "info", fmt.Sprintf("%s removed.", removed))
	}
}

// Clear empties all lines.
func (s *Store) Clear(deviceID string) {
	sess := s.ensure(deviceID)

	s.mu.Lock()
	sess.lines = []models.CartLine{}
	s.mu.Unlock()

	s.afterMutation(sess)
}

// Lines returns a copy of the session's current cart.
func (s *Store) Lines(deviceID string) []models.CartLine {
	sess := s.ensure(deviceID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]models.CartLine, len(sess.lines))
	copy(lines, sess.lines)
	return lines
}

// PruneSelected removes the given lines after a committed checkout. The
// remote write here is immediate, not debounced: the order is already
// durable, so the cart document should not lag behind it.
func (s *Store) PruneSelected(ctx context.Context, deviceID string, productIDs []string) error {
	sess := s.ensure(deviceID)
	selected := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		selected[id] = true
	}

	s.mu.Lock()
	kept := sess.lines[:0]
	for _, line := range sess.lines {
		if !selected[line.ProductID] {
			kept = append(kept, line)
		}
	}
	sess.lines = kept
	if sess.syncTimer != nil {
		sess.syncTimer.Stop()
		sess.syncTimer = nil
	}
	s.mu.Unlock()

	s.writeLocal(sess)
	return s.SyncNow(ctx, deviceID)
}

// SyncNow pushes the current line list to the remote store immediately.
// No-op for anonymous sessions.
func (s *Store) SyncNow(ctx context.Context, deviceID string) error {
	sess := s.ensure(deviceID)

	s.mu.Lock()
	userID := sess.userID
	lines := make([]models.CartLine, len(sess.lines))
	copy(lines, sess.lines)
	s.mu.Unlock()

	if userID == "" {
		return nil
	}
	doc := models.CartDoc{UserID: userID, Items: lines, UpdatedAt: time.Now()}
	if err := s.remote.Set(ctx, remstore.Carts, userID, doc); err != nil {
		return apperr.Transport("cart.sync", err)
	}
	return nil
}

// afterMutation mirrors the in-memory cart to the local cache synchronously
// and re-arms the debounced remote sync.
func (s *Store) afterMutation(sess *session) {
	s.writeLocal(sess)
	s.scheduleRemoteSync(sess)
}

func (s *Store) writeLocal(sess *session) {
	s.mu.Lock()
	lines := make([]models.CartLine, len(sess.lines))
	copy(lines, sess.lines)
	deviceID := sess.deviceID
	s.mu.Unlock()

	if err := s.local.WriteCart(deviceID, lines); err != nil {
		log.Printf("cart: local cache write for %s failed: %v", deviceID, err)
	}
}

func (s *Store) scheduleRemoteSync(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.userID == "" {
		return
	}
	if sess.syncTimer != nil {
		sess.syncTimer.Stop()
	}
	deviceID := sess.deviceID
	sess.syncTimer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.SyncNow(ctx, deviceID); err != nil {
			// Local cache stays authoritative for this session; the next
			// successful sync reconciles.
			log.Printf("cart: debounced remote sync for %s failed: %v", deviceID, err)
		}
	})
}
