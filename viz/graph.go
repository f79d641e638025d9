// ABOUTME: GraphViz generation for the pipeline board and single deal timelines
// ABOUTME: Renders DOT source with go-graphviz from deal store snapshots
package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/harperreed/dealboard/catalog"
	"github.com/harperreed/dealboard/models"
	"github.com/harperreed/dealboard/store"
)

// DealSource is the read side of the deal store the graphs need.
type DealSource interface {
	Board() store.Board
	Deal(id string) (models.Deal, error)
}

type GraphGenerator struct {
	deals DealSource
}

func NewGraphGenerator(deals DealSource) *GraphGenerator {
	return &GraphGenerator{deals: deals}
}

// GeneratePipelineGraph lays out pipelines, their stages in order, and the deals in each stage.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel("Deal Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	board := g.deals.Board()
	var prevStage *cgraph.Node
	for _, col := range board.Pipelines {
		pnode, err := graph.CreateNodeByName("pipeline_" + string(col.Pipeline.ID))
		if err != nil {
			return "", fmt.Errorf("failed to create pipeline node: %w", err)
		}
		pnode.SetLabel(fmt.Sprintf("%s\n%s", col.Pipeline.Name, formatMoney(col.Total)))
		pnode.SetShape("box3d")
		pnode.SetStyle("filled")
		pnode.SetFillColor(col.Pipeline.Color)

		for _, sc := range col.Stages {
			snode, err := graph.CreateNodeByName("stage_" + string(sc.Stage.ID))
			if err != nil {
				return "", fmt.Errorf("failed to create stage node: %w", err)
			}
			snode.SetLabel(fmt.Sprintf("%s\n%d deal(s) %s", sc.Stage.Name, len(sc.Deals), formatMoney(sc.Total)))
			snode.SetShape("box")
			snode.SetStyle("filled")
			snode.SetFillColor(sc.Stage.Color)

			edge, err := graph.CreateEdgeByName("contains", pnode, snode)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetStyle("dashed")
			edge.SetDir("none")

			if prevStage != nil {
				next, err := graph.CreateEdgeByName("next", prevStage, snode)
				if err != nil {
					return "", fmt.Errorf("failed to create edge: %w", err)
				}
				next.SetPenWidth(2)
			}
			prevStage = snode

			for _, deal := range sc.Deals {
				dnode, err := graph.CreateNodeByName("deal_" + shortID(deal.ID))
				if err != nil {
					return "", fmt.Errorf("failed to create deal node: %w", err)
				}
				dnode.SetLabel(fmt.Sprintf("%s\n%s\n%s", deal.Name, deal.Company, formatMoney(deal.Value)))
				dnode.SetShape("ellipse")
				dnode.SetStyle("filled")
				dnode.SetFillColor(priorityColor(deal.Priority))

				if _, err := graph.CreateEdgeByName("in", snode, dnode); err != nil {
					return "", fmt.Errorf("failed to create edge: %w", err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

// GenerateDealGraph draws one deal and its activity timeline in order.
func (g *GraphGenerator) GenerateDealGraph(ctx context.Context, dealID string) (string, error) {
	deal, err := g.deals.Deal(dealID)
	if err != nil {
		return "", err
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer func() { _ = gv.Close() }()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() { _ = graph.Close() }()

	graph.SetLabel(deal.Name)
	graph.SetRankDir(cgraph.TBRank)

	root, err := graph.CreateNodeByName("deal_" + shortID(deal.ID))
	if err != nil {
		return "", fmt.Errorf("failed to create deal node: %w", err)
	}
	stageName := string(deal.Stage)
	if info, err := catalog.StageInfo(deal.Stage); err == nil {
		stageName = info.Name
	}
	root.SetLabel(fmt.Sprintf("%s\n%s\n%s\n(%s)", deal.Name, deal.Company, formatMoney(deal.Value), stageName))
	root.SetShape("diamond")
	root.SetStyle("filled")
	root.SetFillColor(priorityColor(deal.Priority))

	prev := root
	for i, a := range deal.Activities {
		node, err := graph.CreateNodeByName(fmt.Sprintf("activity_%d", i))
		if err != nil {
			return "", fmt.Errorf("failed to create activity node: %w", err)
		}
		label := fmt.Sprintf("%s\n%s\n%s", a.Title, a.Type, a.Timestamp.Format("2006-01-02 15:04"))
		if a.Type == models.ActivityTask && a.Completed {
			label += "\n✓ done"
		}
		node.SetLabel(label)
		node.SetShape("note")

		if _, err := graph.CreateEdgeByName("then", prev, node); err != nil {
			return "", fmt.Errorf("failed to create edge: %w", err)
		}
		prev = node
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return "lightpink"
	case models.PriorityLow:
		return "lightgrey"
	default:
		return "lightyellow"
	}
}

// formatMoney renders whole dollars with thousands separators: $12,000.
func formatMoney(v float64) string {
	whole := int64(v + 0.5)
	s := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}
