package internal

// ResultGatherer receives the lifecycle of a single submission evaluation.
type ResultGatherer interface {
	StartJob(systemInfo string, sub *Submission)

	ReachTest(test TestContext)
	FinishTest(res TestResult)

	CompileError(msg string)
	InternalError(msg string)
	FinishNoError()
}

// NopGatherer discards every event.
type NopGatherer struct{}

func (NopGatherer) StartJob(string, *Submission) {}
func (NopGatherer) ReachTest(TestContext)         {}
func (NopGatherer) FinishTest(TestResult)         {}
func (NopGatherer) CompileError(string)           {}
func (NopGatherer) InternalError(string)          {}
func (NopGatherer) FinishNoError()                {}

// MultiGatherer fans events out to several gatherers in order.
type MultiGatherer []ResultGatherer

func (m MultiGatherer) StartJob(systemInfo string, sub *Submission) {
	for _, g := range m {
		g.StartJob(systemInfo, sub)
	}
}

func (m MultiGatherer) ReachTest(test TestContext) {
	for _, g := range m {
		g.ReachTest(test)
	}
}

func (m MultiGatherer) FinishTest(res TestResult) {
	for _, g := range m {
		g.FinishTest(res)
	}
}

func (m MultiGatherer) CompileError(msg string) {
	for _, g := range m {
		g.CompileError(msg)
	}
}

func (m MultiGatherer) InternalError(msg string) {
	for _, g := range m {
		g.InternalError(msg)
	}
}

func (m MultiGatherer) FinishNoError() {
	for _, g := range m {
		g.FinishNoError()
	}
}
