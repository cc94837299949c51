package gpu

import "github.com/gogpu/hdrplus/herrors"

// Command is one unit of encoded GPU work: a kernel dispatch over a thread
// grid, or a readback/copy. Concrete kernel packages build Commands and pass
// them to Submit; in CPU-only mode Run executes synchronously in Go.
type Command struct {
	Name string
	Run  func() error
}

// Submit runs cmds in order. When wait is true (the only mode the core
// uses — see spec.md §5, there is no host-side parallelism across frames),
// Submit blocks until every command has completed or one has failed, in
// which case it stops and returns that error wrapped as herrors.DeviceLost
// if the failure looks like a runtime device failure, or propagates an
// *herrors.Error unchanged if the command already produced one.
func (c *Context) Submit(cmds []Command, wait bool) error {
	for _, cmd := range cmds {
		if cmd.Run == nil {
			continue
		}
		if err := cmd.Run(); err != nil {
			if _, ok := err.(*herrors.Error); ok {
				return err
			}
			return herrors.New(herrors.DeviceLost, "gpu.Submit:"+cmd.Name, err)
		}
		if !wait {
			// The facade has no async queue in CPU-only mode; every command
			// already ran synchronously above. wait=false is accepted for
			// interface parity with a real command-buffer submission.
			continue
		}
	}
	return nil
}
