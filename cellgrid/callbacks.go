package cellgrid

// CellCallback is notified when a record becomes or stops being the active
// cell of its slot.
type CellCallback func(c *ActiveCell, userData any)

// CallbackID identifies a registered callback.
type CallbackID uint32

type callback struct {
	id       CallbackID
	fn       CellCallback
	userData any
}

type callbackList []callback

func (l callbackList) fire(c *ActiveCell) {
	for _, cb := range l {
		cb.fn(c, cb.userData)
	}
}

func (l *callbackList) remove(id CallbackID) bool {
	for i, cb := range *l {
		if cb.id == id {
			*l = append((*l)[:i], (*l)[i+1:]...)
			return true
		}
	}
	return false
}

// OnActivate registers fn to be called after a cell becomes active and is
// stitched. Callbacks are called in registration order.
func (g *Grid) OnActivate(fn CellCallback, userData any) CallbackID {
	id := CallbackID(g.callbackIDs.New())
	g.activateCallbacks = append(g.activateCallbacks, callback{
		id:       id,
		fn:       fn,
		userData: userData,
	})
	return id
}

// OnDeactivate registers fn to be called before an active cell is unstitched
// and deactivated. Callbacks are called in registration order.
func (g *Grid) OnDeactivate(fn CellCallback, userData any) CallbackID {
	id := CallbackID(g.callbackIDs.New())
	g.deactivateCallbacks = append(g.deactivateCallbacks, callback{
		id:       id,
		fn:       fn,
		userData: userData,
	})
	return id
}

// Unregister removes a callback and reports whether it was registered.
func (g *Grid) Unregister(id CallbackID) bool {
	if g.activateCallbacks.remove(id) || g.deactivateCallbacks.remove(id) {
		g.callbackIDs.Reuse(uint32(id))
		return true
	}
	return false
}
