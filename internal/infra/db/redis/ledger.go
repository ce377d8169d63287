// Package redis keeps availability calendars in Redis sorted sets. Every
// mutation runs as one Lua script, so a hold checks and marks all of its
// cells without interleaving.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domainavailability "stayledger/internal/domain/availability"
	domaincatalog "stayledger/internal/domain/catalog"
	"stayledger/internal/domain/shared/events"
)

// Members are "<startMs>:<endMs>:<status>:<updatedMs>:<bookingID>" scored by
// start, so a range query on score finds every cell that starts before a
// window ends.

const holdScript = `
local key = KEYS[1]
local booking = ARGV[1]
local status = ARGV[2]
local now = ARGV[3]
for i = 4, #ARGV, 2 do
    local s = tonumber(ARGV[i])
    local cells = redis.call("ZRANGEBYSCORE", key, "-inf", "(" .. ARGV[i + 1])
    for _, m in ipairs(cells) do
        local ce = string.match(m, "^%-?%d+:(%-?%d+):")
        if tonumber(ce) > s then
            return {0, m}
        end
    end
end
for i = 4, #ARGV, 2 do
    redis.call("ZADD", key, ARGV[i], ARGV[i] .. ":" .. ARGV[i + 1] .. ":" .. status .. ":" .. now .. ":" .. booking)
end
return {1, (#ARGV - 3) / 2}
`

const releaseScript = `
local key = KEYS[1]
local booking = ARGV[1]
local s = tonumber(ARGV[2])
local released = 0
for _, m in ipairs(redis.call("ZRANGEBYSCORE", key, "-inf", "(" .. ARGV[3])) do
    local ce, owner = string.match(m, "^%-?%d+:(%-?%d+):%a+:%-?%d+:(.*)$")
    if owner == booking and tonumber(ce) > s then
        redis.call("ZREM", key, m)
        released = released + 1
    end
end
return released
`

const promoteScript = `
local key = KEYS[1]
local booking = ARGV[1]
local now = ARGV[2]
local promoted = 0
for _, m in ipairs(redis.call("ZRANGE", key, 0, -1)) do
    local cs, ce, st, owner = string.match(m, "^(%-?%d+):(%-?%d+):(%a+):%-?%d+:(.*)$")
    if owner == booking and st == "held" then
        redis.call("ZREM", key, m)
        redis.call("ZADD", key, cs, cs .. ":" .. ce .. ":booked:" .. now .. ":" .. owner)
        promoted = promoted + 1
    end
end
return promoted
`

const forceReleaseScript = `
local key = KEYS[1]
local s = tonumber(ARGV[1])
local allowed = {}
for i = 3, #ARGV do
    allowed[ARGV[i]] = true
end
local owners = {}
local seen = {}
for _, m in ipairs(redis.call("ZRANGEBYSCORE", key, "-inf", "(" .. ARGV[2])) do
    local ce, owner = string.match(m, "^%-?%d+:(%-?%d+):%a+:%-?%d+:(.*)$")
    if tonumber(ce) > s and allowed[owner] then
        redis.call("ZREM", key, m)
        if not seen[owner] then
            seen[owner] = true
            table.insert(owners, owner)
        end
    end
end
return owners
`

var (
	hold         = goredis.NewScript(holdScript)
	release      = goredis.NewScript(releaseScript)
	promote      = goredis.NewScript(promoteScript)
	forceRelease = goredis.NewScript(forceReleaseScript)
)

var errUnexpectedReply = errors.New("redis: unexpected script reply")

type Ledger struct {
	Clock  func() time.Time
	Sink   domainavailability.EventSink
	Prefix string

	client goredis.UniversalClient
}

func NewLedger(client goredis.UniversalClient) *Ledger {
	return &Ledger{client: client, Prefix: "stayledger:calendar:"}
}

// NewClient opens a client and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return client, nil
}

// Preload caches the scripts on the server.
func (l *Ledger) Preload(ctx context.Context) error {
	for _, s := range []*goredis.Script{hold, release, promote, forceRelease} {
		if err := s.Load(ctx, l.client).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) now() time.Time {
	if l.Clock != nil {
		return l.Clock().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) key(ref domaincatalog.ResourceRef) string {
	return l.Prefix + ref.String()
}

func (l *Ledger) emit(ctx context.Context, ev events.DomainEvent) {
	if l.Sink != nil {
		l.Sink(ctx, []events.DomainEvent{ev})
	}
}

func (l *Ledger) Hold(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, bookingID string) error {
	if err := span.Validate(); err != nil {
		return err
	}
	if bookingID == "" {
		return domainavailability.ErrBookingRequired
	}
	now := l.now()
	args := []any{bookingID, string(domainavailability.StatusHeld), now.UnixMilli()}
	for _, iv := range span.Intervals() {
		args = append(args, iv.Start.UnixMilli(), iv.End.UnixMilli())
	}
	reply, err := hold.Run(ctx, l.client, []string{l.key(ref)}, args...).Slice()
	if err != nil {
		return fmt.Errorf("redis: hold: %w", err)
	}
	if len(reply) != 2 {
		return errUnexpectedReply
	}
	ok, _ := reply[0].(int64)
	if ok == 0 {
		l.emit(ctx, domainavailability.ConflictPrevented{Resource: ref.String(), Span: span, BookingID: bookingID, At: now})
		return domainavailability.ErrConflict
	}
	l.emit(ctx, domainavailability.Held{Resource: ref.String(), Span: span, BookingID: bookingID, Status: domainavailability.StatusHeld, At: now})
	return nil
}

func (l *Ledger) Promote(ctx context.Context, ref domaincatalog.ResourceRef, bookingID string) error {
	now := l.now()
	n, err := promote.Run(ctx, l.client, []string{l.key(ref)}, bookingID, now.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("redis: promote: %w", err)
	}
	if n > 0 {
		l.emit(ctx, domainavailability.Promoted{Resource: ref.String(), BookingID: bookingID, Cells: n, At: now})
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, bookingID string) error {
	now := l.now()
	bounds := span.Bounds()
	n, err := release.Run(ctx, l.client, []string{l.key(ref)}, bookingID, bounds.Start.UnixMilli(), bounds.End.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("redis: release: %w", err)
	}
	if n > 0 {
		l.emit(ctx, domainavailability.Released{Resource: ref.String(), Span: span, BookingID: bookingID, Cells: n, At: now})
	}
	return nil
}

func (l *Ledger) ForceRelease(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, only []string) ([]string, error) {
	if len(only) == 0 {
		return nil, nil
	}
	now := l.now()
	bounds := span.Bounds()
	args := []any{bounds.Start.UnixMilli(), bounds.End.UnixMilli()}
	for _, id := range only {
		args = append(args, id)
	}
	owners, err := forceRelease.Run(ctx, l.client, []string{l.key(ref)}, args...).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("redis: force release: %w", err)
	}
	if len(owners) > 0 {
		l.emit(ctx, domainavailability.ForceReleased{Resource: ref.String(), Span: span, BookingIDs: owners, At: now})
	}
	return owners, nil
}

func (l *Ledger) IsAvailable(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span) (bool, error) {
	if err := span.Validate(); err != nil {
		return false, err
	}
	bounds := span.Bounds()
	cells, err := l.Cells(ctx, ref, bounds)
	if err != nil {
		return false, err
	}
	for _, want := range span.Intervals() {
		for _, cell := range cells {
			if cell.Interval().Overlaps(want) {
				return false, nil
			}
		}
	}
	return true, nil
}

func (l *Ledger) Cells(ctx context.Context, ref domaincatalog.ResourceRef, window domainavailability.Interval) ([]domainavailability.Cell, error) {
	members, err := l.client.ZRangeByScore(ctx, l.key(ref), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(window.End.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}
	var out []domainavailability.Cell
	for _, m := range members {
		cell, err := decodeMember(m)
		if err != nil {
			return nil, err
		}
		if cell.Interval().Overlaps(window) {
			out = append(out, cell)
		}
	}
	return out, nil
}

func encodeMember(c domainavailability.Cell) string {
	return fmt.Sprintf("%d:%d:%s:%d:%s", c.Start.UnixMilli(), c.End.UnixMilli(), c.Status, c.UpdatedAt.UnixMilli(), c.BookingID)
}

func decodeMember(m string) (domainavailability.Cell, error) {
	parts := strings.SplitN(m, ":", 5)
	if len(parts) != 5 {
		return domainavailability.Cell{}, fmt.Errorf("redis: malformed cell %q", m)
	}
	var ms [3]int64
	for i, p := range []string{parts[0], parts[1], parts[3]} {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return domainavailability.Cell{}, fmt.Errorf("redis: malformed cell %q: %w", m, err)
		}
		ms[i] = v
	}
	updated := time.UnixMilli(ms[2]).UTC()
	return domainavailability.Cell{
		Start:     time.UnixMilli(ms[0]).UTC(),
		End:       time.UnixMilli(ms[1]).UTC(),
		Status:    domainavailability.Status(parts[2]),
		BookingID: parts[4],
		Reason:    domainavailability.ReasonBooking,
		CreatedAt: updated,
		UpdatedAt: updated,
	}, nil
}

var _ domainavailability.Ledger = (*Ledger)(nil)
