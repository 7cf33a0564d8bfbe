package callengine

// Milestone names a timestamped point in a call's lifecycle (§3).
type Milestone string

const (
	MilestoneStart                 Milestone = "start"
	MilestoneRemoteUserRecvCall     Milestone = "remoteUserRecvCall"
	MilestoneAcceptCall             Milestone = "acceptCall"
	MilestoneLocalUserJoinChannel   Milestone = "localUserJoinChannel"
	MilestoneRemoteUserJoinChannel  Milestone = "remoteUserJoinChannel"
	MilestoneRecvFirstFrame         Milestone = "recvFirstFrame"
	MilestoneEnd                    Milestone = "end"
)

// Entry is one (milestone, monotonic_timestamp_ms) pair.
type Entry struct {
	Milestone Milestone
	TimestampMillis int64
}

// CallInfo is an append-only ordered milestone buffer for a single call,
// reset at teardown and snapshotted on first-frame decode (§3).
type CallInfo struct {
	nowMillis func() int64
	entries   []Entry
}

// newCallInfo builds an empty buffer using the supplied clock (tests inject a
// deterministic one; production uses wall-clock milliseconds).
func newCallInfo(nowMillis func() int64) *CallInfo {
	return &CallInfo{nowMillis: nowMillis}
}

// Record appends a milestone with the current timestamp.
func (c *CallInfo) Record(m Milestone) {
	c.entries = append(c.entries, Entry{Milestone: m, TimestampMillis: c.nowMillis()})
}

// Snapshot returns a defensive copy of the buffer so far.
func (c *CallInfo) Snapshot() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Reset clears the buffer, ready for the next call.
func (c *CallInfo) Reset() {
	c.entries = nil
}
