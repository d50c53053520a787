package planner

import "github.com/corvid-graph/corvid/pkg/ast"

// lowerCreate converts CREATE patterns into a Create operator, binding each
// pattern variable and rejecting a relationship variable reused across two
// distinct relationships (spec §4.4.3). A variable may legally appear as
// the node on both ends of one relationship (a self-loop).
func lowerCreate(c ast.CreateClause, sc *scope) (Operator, error) {
	var patterns []CreatePattern
	relVarsSeen := make(map[string]bool)

	for _, p := range c.Patterns {
		cp, err := lowerCreatePattern(p, sc, relVarsSeen)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, cp)
	}
	return Create{Patterns: patterns}, nil
}

func lowerCreatePattern(p ast.Pattern, sc *scope, relVarsSeen map[string]bool) (CreatePattern, error) {
	var cp CreatePattern
	if len(p.Elements) == 0 {
		return cp, newCompileError(CodeMalformedAST, "CREATE pattern has no elements")
	}

	nodeVarAt := make([]string, 0, len(p.Elements))
	for i, el := range p.Elements {
		if el.Node != nil {
			v := el.Node.Var
			if v == "" {
				v = syntheticCreateVar(i)
			}
			if err := sc.bind(v, KindNode); err != nil {
				return cp, err
			}
			cp.Nodes = append(cp.Nodes, CreateNode{Var: v, Labels: el.Node.Labels, Properties: el.Node.Properties})
			nodeVarAt = append(nodeVarAt, v)
		} else {
			nodeVarAt = append(nodeVarAt, "")
		}
	}

	for i := 1; i < len(p.Elements); i += 2 {
		rel := p.Elements[i].Rel
		if rel == nil {
			continue
		}
		v := rel.Var
		if v == "" {
			v = syntheticCreateVar(i)
		} else {
			if relVarsSeen[v] {
				return cp, newCompileError(CodeDuplicateRelVar,
					"relationship variable %q used more than once in CREATE", v)
			}
			relVarsSeen[v] = true
		}
		if err := sc.bind(v, KindRelationship); err != nil {
			return cp, err
		}
		relType := ""
		if len(rel.Types) > 0 {
			relType = rel.Types[0]
		}
		cp.Rels = append(cp.Rels, CreateRel{
			Var: v, SrcVar: nodeVarAt[i-1], DstVar: nodeVarAt[i+1],
			Type: relType, Direction: rel.Direction, Properties: rel.Properties,
		})
	}
	return cp, nil
}

func syntheticCreateVar(i int) string {
	return anonName(i + 1000)
}

// lowerMerge lowers a single MERGE pattern. MERGE's pattern reuses the same
// match-pattern shape as MATCH (spec §4.7: "probes the graph for a match");
// the planner only needs to know which single variable the executor should
// use to decide create-vs-match, which is the pattern's sole node when the
// pattern is a lone node, or the relationship's variable otherwise.
func lowerMerge(m ast.MergeClause, sc *scope) (Operator, error) {
	relVarsSeen := make(map[string]bool)
	cp, err := lowerCreatePattern(m.Pattern, sc, relVarsSeen)
	if err != nil {
		return nil, err
	}
	matchVar := ""
	if len(cp.Rels) > 0 {
		matchVar = cp.Rels[0].Var
	} else if len(cp.Nodes) > 0 {
		matchVar = cp.Nodes[0].Var
	}
	return Merge{Pattern: cp, MatchVar: matchVar, OnCreate: m.OnCreate, OnMatch: m.OnMatch}, nil
}
