package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/nathants/gridsearch/grid"
	"github.com/pkg/errors"
)

// Page implements grid.Browser over a chromedp tab context. The ctx passed
// to its methods must descend from that tab context.
//
// Both strategies work at document and element scope. Document XPath goes
// through DOM.performSearch; element XPath is evaluated in the page with the
// element as context node, since performSearch ignores any context.
type Page struct{}

var _ grid.Browser = Page{}

func NewPage() Page {
	return Page{}
}

func (Page) Find(ctx context.Context, loc grid.Locator) (grid.Element, error) {
	return findOne(ctx, nil, loc)
}

func (Page) FindAll(ctx context.Context, loc grid.Locator) ([]grid.Element, error) {
	return findAll(ctx, nil, loc)
}

func (Page) WaitAbsent(ctx context.Context, loc grid.Locator, timeout time.Duration) error {
	opts, err := queryOptions(nil, loc, false)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err = chromedp.Run(waitCtx, chromedp.WaitNotPresent(loc.Expr, opts...))
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Node is a grid.Element backed by a DOM node.
type Node struct {
	node *cdp.Node
}

var _ grid.Element = (*Node)(nil)

func (n *Node) ids() []cdp.NodeID {
	return []cdp.NodeID{n.node.NodeID}
}

func (n *Node) Find(ctx context.Context, loc grid.Locator) (grid.Element, error) {
	return findOne(ctx, n.node, loc)
}

func (n *Node) FindAll(ctx context.Context, loc grid.Locator) ([]grid.Element, error) {
	return findAll(ctx, n.node, loc)
}

// Text returns the rendered text of the node (innerText).
func (n *Node) Text(ctx context.Context) (string, error) {
	var text string
	err := chromedp.Run(ctx, chromedp.JavascriptAttribute(n.ids(), "innerText", &text, chromedp.ByNodeID))
	return text, err
}

func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value   string
		present bool
	)
	err := chromedp.Run(ctx, chromedp.AttributeValue(n.ids(), name, &value, &present, chromedp.ByNodeID))
	return value, present, err
}

func (n *Node) Click(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Click(n.ids(), chromedp.ByNodeID))
}

// SetChecked clicks the node when its checked property differs from checked,
// so the page sees the same events as a user toggling it.
func (n *Node) SetChecked(ctx context.Context, checked bool) error {
	var current bool
	if err := chromedp.Run(ctx, chromedp.JavascriptAttribute(n.ids(), "checked", &current, chromedp.ByNodeID)); err != nil {
		return err
	}
	if current == checked {
		return nil
	}
	return n.Click(ctx)
}

func (n *Node) ScrollIntoView(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.ScrollIntoView(n.ids(), chromedp.ByNodeID))
}

func findOne(ctx context.Context, scope *cdp.Node, loc grid.Locator) (grid.Element, error) {
	nodes, err := queryNodes(ctx, scope, loc, false)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.Wrap(grid.ErrNotFound, loc.String())
	}
	return &Node{node: nodes[0]}, nil
}

func findAll(ctx context.Context, scope *cdp.Node, loc grid.Locator) ([]grid.Element, error) {
	nodes, err := queryNodes(ctx, scope, loc, true)
	if err != nil {
		return nil, err
	}
	elements := make([]grid.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &Node{node: node})
	}
	return elements, nil
}

// queryNodes never waits for nodes to appear: absence is an answer.
func queryNodes(ctx context.Context, scope *cdp.Node, loc grid.Locator, all bool) ([]*cdp.Node, error) {
	if scope != nil && loc.Strategy == grid.ByXPath {
		return scopedXPath(ctx, scope, loc.Expr, all)
	}
	opts, err := queryOptions(scope, loc, all)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	opts = append(opts, chromedp.AtLeast(0))
	if err := chromedp.Run(ctx, chromedp.Nodes(loc.Expr, &nodes, opts...)); err != nil {
		return nil, err
	}
	return nodes, nil
}

func queryOptions(scope *cdp.Node, loc grid.Locator, all bool) ([]chromedp.QueryOption, error) {
	var opts []chromedp.QueryOption
	switch loc.Strategy {
	case grid.ByXPath:
		opts = append(opts, chromedp.BySearch)
	case grid.ByCSS:
		if all {
			opts = append(opts, chromedp.ByQueryAll)
		} else {
			opts = append(opts, chromedp.ByQuery)
		}
		if scope != nil {
			opts = append(opts, chromedp.FromNode(scope))
		}
	default:
		return nil, errors.Wrapf(grid.ErrUnsupportedLocator, "%s", loc)
	}
	return opts, nil
}

// scopedXPath runs document.evaluate with scope as the context node and
// hands every result back to the DOM agent to get its node id.
func scopedXPath(ctx context.Context, scope *cdp.Node, expr string, all bool) ([]*cdp.Node, error) {
	quoted, err := json.Marshal(expr)
	if err != nil {
		return nil, err
	}
	snapshot := fmt.Sprintf("document.evaluate(%s, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null)", quoted)
	var nodes []*cdp.Node
	err = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(scope.NodeID).Do(ctx)
		if err != nil {
			return errors.Wrap(err, "resolve scope node")
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, err := callOn(ctx, obj.ObjectID, "function() { return "+snapshot+".snapshotLength; }", true)
		if err != nil {
			return err
		}
		var count int
		if err := json.Unmarshal([]byte(res.Value), &count); err != nil {
			return errors.Wrapf(err, "xpath %s result length", expr)
		}
		if !all && count > 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			item, err := callOn(ctx, obj.ObjectID, fmt.Sprintf("function() { return %s.snapshotItem(%d); }", snapshot, i), false)
			if err != nil {
				return err
			}
			if item.ObjectID == "" {
				continue
			}
			id, err := dom.RequestNode(item.ObjectID).Do(ctx)
			_ = runtime.ReleaseObject(item.ObjectID).Do(ctx)
			if err != nil {
				return errors.Wrapf(err, "xpath %s item %d", expr, i)
			}
			nodes = append(nodes, &cdp.Node{NodeID: id})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func callOn(ctx context.Context, object runtime.RemoteObjectID, fn string, byValue bool) (*runtime.RemoteObject, error) {
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(object).
		WithReturnByValue(byValue).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if exc != nil {
		return nil, errors.Errorf("%s: %s", exc.Text, fn)
	}
	return res, nil
}
