package tutorial

import (
	"github.com/bhandras/stepwise/internal/actor"
)

// Start returns a command that begins a new session for problem in generate
// mode. conversationID must be fresh.
func Start(problem, conversationID, currentCode string, reply chan error) actor.Input {
	return cmdStart{Problem: problem, ConversationID: conversationID, CurrentCode: currentCode, Reply: reply}
}

// Stuck returns a command that begins a new session for problem in stuck
// mode, writing the answer into the step body.
func Stuck(problem, conversationID, currentCode string, reply chan error) actor.Input {
	return cmdStuck{Problem: problem, ConversationID: conversationID, CurrentCode: currentCode, Reply: reply}
}

// Restart returns a command that restarts the current problem from step 1
// under a new conversation.
func Restart(conversationID, currentCode string, reply chan error) actor.Input {
	return cmdRestart{ConversationID: conversationID, CurrentCode: currentCode, Reply: reply}
}

// Next returns a command that advances to the next step.
func Next(currentCode string, reply chan error) actor.Input {
	return cmdNext{CurrentCode: currentCode, Reply: reply}
}

// Hint returns a command that fetches a hint for the current step.
func Hint(currentCode string, reply chan error) actor.Input {
	return cmdHint{CurrentCode: currentCode, Reply: reply}
}

// InstructionHint returns a command that fetches clarified instructions for
// the current step.
func InstructionHint(currentCode string, reply chan error) actor.Input {
	return cmdInstructionHint{CurrentCode: currentCode, Reply: reply}
}

// Reset returns a command that discards the session and returns to intake.
func Reset(conversationID string, reply chan error) actor.Input {
	return cmdReset{ConversationID: conversationID, Reply: reply}
}

// SetMaxSteps returns a command that changes the step limit.
func SetMaxSteps(n int, reply chan error) actor.Input {
	return cmdSetMaxSteps{MaxSteps: n, Reply: reply}
}

// ChunkReceived returns the event for a message fragment of fetch tag.
func ChunkReceived(tag int64, data string) actor.Input {
	return evChunk{Tag: tag, Data: data}
}

// ResponseIDReceived returns the event for a responseId event of fetch tag.
func ResponseIDReceived(tag int64, id string) actor.Input {
	return evResponseID{Tag: tag, ID: id}
}

// StreamDone returns the event for a done event of fetch tag.
func StreamDone(tag int64) actor.Input {
	return evStreamDone{Tag: tag}
}

// StreamFailed returns the event for a transport failure of fetch tag.
func StreamFailed(tag int64, err error) actor.Input {
	return evStreamFailed{Tag: tag, Err: err}
}
