package executor

// TurnState is the position of a turn in the tutoring loop.
type TurnState int

const (
	// StateAwaitingModel means a model request is about to be sent
	StateAwaitingModel TurnState = iota
	// StateStreamingResponse means the model response is being consumed
	StateStreamingResponse
	// StateDispatchingTools means the tool calls of the response are running
	StateDispatchingTools
	// StateDone means the model answered without tool calls
	StateDone
)

func (s TurnState) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateStreamingResponse:
		return "streaming_response"
	case StateDispatchingTools:
		return "dispatching_tools"
	case StateDone:
		return "done"
	}
	return "unknown"
}
