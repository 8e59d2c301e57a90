package sched

// run drains this priority level's ready queues. It is the handler of the
// dispatcher's vector, so it only ever executes inside an interrupt context
// at exactly its own hardware priority: equal-or-lower work waits, strictly
// higher work preempts it transparently.
func (d *dispatcher) run(a *App) {
	for {
		serviced := false
		// Fixed sender order keeps draining deterministic when more than
		// one sender feeds this level.
		for s := 0; s < numSenders; s++ {
			e, ok := d.rq[s].Dequeue()
			if !ok {
				continue
			}
			serviced = true

			t := a.tasks[e.task]
			payload := t.inputs[e.slot]
			t.inputs[e.slot] = nil

			a.emit(EventDispatched, t.decl.Name, int(e.slot), d.priority)
			ctx := Ctx{app: a, priority: d.priority}
			if t.decl.Body != nil {
				t.decl.Body(&ctx, payload)
			}
			// The body ran to completion; the slot goes straight back to
			// the free queue. The dispatcher is the only producer of fq.
			t.fq[s].EnqueueUnchecked(e.slot)
			a.emit(EventCompleted, t.decl.Name, int(e.slot), d.priority)
		}
		if !serviced {
			return
		}
	}
}

// handler adapts a hardware task body to its vector. Hardware tasks carry
// no slot state; the vector itself is the instance.
func (a *App) hardwareHandler(t *task) func() {
	return func() {
		a.emit(EventDispatched, t.decl.Name, -1, t.decl.Priority)
		ctx := Ctx{app: a, priority: t.decl.Priority}
		if t.decl.Body != nil {
			t.decl.Body(&ctx, nil)
		}
		a.emit(EventCompleted, t.decl.Name, -1, t.decl.Priority)
	}
}
