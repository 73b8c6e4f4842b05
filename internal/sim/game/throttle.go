package game

// throttled reports whether an action last accepted at tick last is still
// inside its window. last == 0 means the action never happened.
func throttled(last, now, window int64) bool {
	return last != 0 && last+window > now
}

// window converts a duration given as num/den seconds into ticks.
func (c *Context) window(num, den int64) int64 {
	return int64(c.server.TickSpeed()) * num / den
}
