package ports

type Metrics interface {
	SlateTransition(state string)
	SwapTransition(phase string)
	NodeRequest(method string, err error)
}
