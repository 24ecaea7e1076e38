package ver

import (
	"fmt"
	"strings"
)

// Channel is a release track.
type Channel int

const (
	// ChannelStable is the zero value so an empty Query means "stable".
	ChannelStable Channel = iota
	ChannelTesting
	ChannelNightly
)

var channelNames = map[Channel]string{
	ChannelStable:  "stable",
	ChannelTesting: "testing",
	ChannelNightly: "nightly",
}

func (c Channel) String() string {
	return channelNames[c]
}

// ParseChannel accepts "stable", "testing" or "nightly".
func ParseChannel(s string) (Channel, error) {
	for c, name := range channelNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q (expected stable, testing or nightly)", s)
}

// Matches reports whether v is published on channel c.
func (c Channel) Matches(v Version) bool {
	switch c {
	case ChannelNightly:
		return v.IsNightly()
	case ChannelTesting:
		return !v.IsNightly()
	default:
		return v.Pre == PreNone
	}
}

// Query is the version declared by a project: a channel with an optional
// Filter narrowing it. The zero Query is the stable channel without narrowing.
type Query struct {
	Channel Channel
	Filter  *Filter
}

// QueryFromChannel returns an unnarrowed query for c.
func QueryFromChannel(c Channel) Query {
	return Query{Channel: c}
}

// Matches implements Spec.
func (q Query) Matches(v Version) bool {
	if !q.Channel.Matches(v) {
		return false
	}
	if q.Filter == nil {
		return true
	}
	if q.Channel == ChannelNightly {
		return v.Major == q.Filter.Major
	}
	return q.Filter.Matches(v)
}

// IsNightly reports whether the query tracks nightly builds.
func (q Query) IsNightly() bool {
	return q.Channel == ChannelNightly
}

func (q Query) String() string {
	if q.Filter == nil {
		return q.Channel.String()
	}
	if q.Channel == ChannelStable || (q.Channel == ChannelTesting && q.Filter.Pre != PreNone) {
		return q.Filter.String()
	}
	return fmt.Sprintf("%s %s", q.Channel, q.Filter)
}

// ParseQuery accepts a channel name, "*" or "" (stable), or a Filter. A filter
// naming a pre-release selects the testing channel.
func ParseQuery(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return Query{}, nil
	}
	if c, err := ParseChannel(s); err == nil {
		return QueryFromChannel(c), nil
	}
	f, err := ParseFilter(s)
	if err != nil {
		return Query{}, &ParseError{Input: s, Grammars: []string{"channel", "filter"}}
	}
	q := Query{Channel: ChannelStable, Filter: &f}
	if f.Pre != PreNone {
		q.Channel = ChannelTesting
	}
	return q, nil
}
