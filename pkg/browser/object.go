package browser

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/nextlevelbuilder/vibetorch/pkg/dom"
)

// remoteObject is a read-only view of a page object. Own properties are
// fetched once with Runtime.getProperties and cached.
type remoteObject struct {
	page *Page
	id   proto.RuntimeRemoteObjectID

	once  sync.Once
	keys  []string
	props map[string]*proto.RuntimeRemoteObject
}

var _ dom.Object = (*remoteObject)(nil)

func (o *remoteObject) load() {
	o.once.Do(func() {
		o.props = make(map[string]*proto.RuntimeRemoteObject)
		res, err := proto.RuntimeGetProperties{ObjectID: o.id, OwnProperties: true}.Call(o.page.page)
		if err != nil {
			o.page.logger.Debug("browser: read properties failed", "error", err)
			return
		}
		for _, d := range res.Result {
			if d == nil || d.Value == nil {
				continue
			}
			o.keys = append(o.keys, d.Name)
			o.props[d.Name] = d.Value
		}
	})
}

func (o *remoteObject) Keys() []string {
	o.load()
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *remoteObject) Get(key string) (any, bool) {
	o.load()
	v, ok := o.props[key]
	if !ok {
		return nil, false
	}
	return convertRemote(o.page, v), true
}

type remoteArray struct {
	*remoteObject
}

var _ dom.Array = (*remoteArray)(nil)

func (a *remoteArray) Len() int {
	v, _ := a.Get("length")
	f, _ := v.(float64)
	return int(f)
}

func (a *remoteArray) Index(i int) any {
	v, _ := a.Get(indexKey(i))
	return v
}

// Keys lists the element indices only.
func (a *remoteArray) Keys() []string {
	n := a.Len()
	out := make([]string, n)
	for i := range n {
		out[i] = indexKey(i)
	}
	return out
}

type remoteFunc struct {
	*remoteObject
	description string
}

var _ dom.Func = (*remoteFunc)(nil)

func (f *remoteFunc) Name() string {
	if v, ok := f.Get("name"); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return functionName(f.description)
}

func (f *remoteFunc) Source() string {
	res, err := proto.RuntimeCallFunctionOn{
		ObjectID:            f.id,
		FunctionDeclaration: jsSource,
		ReturnByValue:       true,
	}.Call(f.page.page)
	if err != nil || res.Result == nil {
		return f.description
	}
	return res.Result.Value.Str()
}

// convertRemote maps a CDP remote value onto the dom value model.
func convertRemote(p *Page, v *proto.RuntimeRemoteObject) any {
	if v == nil {
		return nil
	}
	switch v.Type {
	case proto.RuntimeRemoteObjectTypeString:
		return v.Value.Str()
	case proto.RuntimeRemoteObjectTypeNumber:
		return v.Value.Num()
	case proto.RuntimeRemoteObjectTypeBoolean:
		return v.Value.Bool()
	case proto.RuntimeRemoteObjectTypeSymbol, proto.RuntimeRemoteObjectTypeBigint:
		return v.Description
	case proto.RuntimeRemoteObjectTypeFunction:
		if v.ObjectID == "" {
			return nil
		}
		return &remoteFunc{remoteObject: &remoteObject{page: p, id: v.ObjectID}, description: v.Description}
	case proto.RuntimeRemoteObjectTypeObject:
		if v.Subtype == proto.RuntimeRemoteObjectSubtypeNull || v.ObjectID == "" {
			return nil
		}
		return p.canonicalObject(v.ObjectID, v.Subtype == proto.RuntimeRemoteObjectSubtypeArray)
	}
	return nil
}

// canonicalObject returns the wrapper for a page object. Objects are keyed by
// a page-side identity, so reading the same object through two paths yields
// the same Go pointer until the page navigates.
func (p *Page) canonicalObject(id proto.RuntimeRemoteObjectID, array bool) dom.Object {
	build := func() dom.Object {
		obj := &remoteObject{page: p, id: id}
		if array {
			return &remoteArray{remoteObject: obj}
		}
		return obj
	}
	if p == nil || p.identify == nil {
		return build()
	}
	key, ok := p.identify(id)
	if !ok {
		return build()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.objects[key]; ok {
		return w
	}
	w := build()
	p.objects[key] = w
	return w
}

// objectIdentity tags the object with a per-document sequence number held in
// a WeakMap and returns it.
func (p *Page) objectIdentity(id proto.RuntimeRemoteObjectID) (int, bool) {
	res, err := proto.RuntimeCallFunctionOn{
		ObjectID:            id,
		FunctionDeclaration: jsObjectIdentity,
		ReturnByValue:       true,
	}.Call(p.page)
	if err != nil || res.Result == nil || res.ExceptionDetails != nil {
		return 0, false
	}
	n := res.Result.Value.Int()
	return n, n > 0
}

var funcNameRe = regexp.MustCompile(`^(?:async\s+)?(?:function\*?|class)\s+([A-Za-z_$][\w$]*)`)

// functionName extracts a name from a function description such as
// "function Button(props) {...}" or "class Card extends ...".
func functionName(description string) string {
	m := funcNameRe.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1]
}

func indexKey(i int) string { return strconv.Itoa(i) }
