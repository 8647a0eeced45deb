package models

import "strings"

// Agents join the room under a SIP identity following the
// "sip_<call>_agent" naming convention.
const (
	agentIDPrefix = "sip_"
	agentIDSuffix = "_agent"
)

// IsAgent reports whether this participant is an automated agent, judged by
// its case-folded identity.
func (p ParticipantSnapshot) IsAgent() bool {
	id := strings.ToLower(p.ID)
	return strings.HasPrefix(id, agentIDPrefix) && strings.HasSuffix(id, agentIDSuffix)
}

// HasAgentInRoom reports whether any participant matches the agent identity
// pattern.
func (s RoomState) HasAgentInRoom() bool {
	for _, p := range s.Participants {
		if p.IsAgent() {
			return true
		}
	}
	return false
}

// ActiveMediaSource resolves which source is currently driving the call
// audio. The call data is authoritative when it carries a source; otherwise
// the source is inferred from the roster, first matching rule wins:
// an unmuted agent participant, a room whose only participant is the agent,
// or an outgoing setup that has not completed with no human clearly active.
// When nothing matches the source is unknown and reported as "".
func (s RoomState) ActiveMediaSource(mode SessionMode) string {
	if s.CurrentCallData != nil && s.CurrentCallData.ActiveMediaSource != "" {
		return s.CurrentCallData.ActiveMediaSource
	}

	for _, p := range s.Participants {
		if p.IsAgent() && !p.Muted {
			return MediaSourceAgent
		}
	}

	if len(s.Participants) == 1 && s.Participants[0].IsAgent() {
		return MediaSourceAgent
	}

	if mode == ModeOutgoingSetup && !s.humanActive() && !s.setupComplete() {
		return MediaSourceAgent
	}

	return ""
}

// IsActiveMediaSourceAgent reports whether the agent is currently the active
// audio source.
func (s RoomState) IsActiveMediaSourceAgent(mode SessionMode) bool {
	return s.ActiveMediaSource(mode) == MediaSourceAgent
}

func (s RoomState) humanActive() bool {
	for _, p := range s.Participants {
		if !p.IsAgent() && !p.Muted {
			return true
		}
	}
	return false
}

func (s RoomState) setupComplete() bool {
	return s.CurrentCallData != nil && s.CurrentCallData.SetupComplete
}

// AgentStatus describes the agent lifecycle as derived from the active
// media source.
type AgentStatus string

const (
	AgentStopped AgentStatus = "stopped"
	AgentActive  AgentStatus = "active"
	AgentPaused  AgentStatus = "paused"
	AgentUnknown AgentStatus = "unknown"
)

// AgentStatusForSource maps an active media source value to the agent
// lifecycle status.
func AgentStatusForSource(source string) AgentStatus {
	switch source {
	case "", MediaSourceNone:
		return AgentStopped
	case MediaSourceAgent:
		return AgentActive
	case MediaSourceHuman:
		return AgentPaused
	default:
		return AgentUnknown
	}
}

// AgentStatus resolves the agent lifecycle status for this room state.
func (s RoomState) AgentStatus(mode SessionMode) AgentStatus {
	return AgentStatusForSource(s.ActiveMediaSource(mode))
}

// CanStartAgent reports whether the start-agent control should be offered.
func (st AgentStatus) CanStartAgent() bool {
	return st == AgentStopped
}

// CanStopAgent reports whether the stop-agent control should be offered.
func (st AgentStatus) CanStopAgent() bool {
	return st == AgentActive || st == AgentPaused
}
