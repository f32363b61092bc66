package sqlmcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrInvalidArgs = errors.New("invalid arguments")
)

type toolDef struct {
	Tool
	run func(ctx context.Context, s *Service, args map[string]any) (any, error)
}

// The catalog is fixed: these four operations and nothing else.
var tools = []toolDef{
	{
		Tool: Tool{
			Name:        "sql_query",
			Description: "Execute a SQL query against the database",
			InputSchema: objectSchema(map[string]any{
				"sql": map[string]any{
					"type":        "string",
					"description": "The SQL query to execute",
				},
			}, "sql"),
		},
		run: runSQLQuery,
	},
	{
		Tool: Tool{
			Name:        "list_tables",
			Description: "List all tables in the database",
			InputSchema: objectSchema(map[string]any{}),
		},
		run: runListTables,
	},
	{
		Tool: Tool{
			Name:        "describe_table",
			Description: "Get the schema of a specific table",
			InputSchema: objectSchema(map[string]any{
				"table_name": map[string]any{
					"type":        "string",
					"description": "Name of the table to describe",
				},
			}, "table_name"),
		},
		run: runDescribeTable,
	},
	{
		Tool: Tool{
			Name:        "get_table_info",
			Description: "Get detailed information about a table including row count, foreign keys and indexes",
			InputSchema: objectSchema(map[string]any{
				"table_name": map[string]any{
					"type":        "string",
					"description": "Name of the table to inspect",
				},
			}, "table_name"),
		},
		run: runGetTableInfo,
	},
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	ret := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) != 0 {
		ret["required"] = required
	}
	return ret
}

// Tools returns the catalog served by tools/list.
func Tools() (ret []Tool) {
	ret = make([]Tool, 0, len(tools))
	for i := range tools {
		ret = append(ret, tools[i].Tool)
	}
	return
}

func findTool(name string) *toolDef {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}

// validateArgs checks an argument bag against a tool's declared schema:
// required arguments must be present, and string-typed ones must be
// strings. Runs before dispatch, so a bad bag never reaches the engine.
func validateArgs(schema, args map[string]any) error {
	required, _ := schema["required"].([]string)
	props, _ := schema["properties"].(map[string]any)
	for _, name := range required {
		v, ok := args[name]
		if !ok {
			return fmt.Errorf("%w: missing required argument %q", ErrInvalidArgs, name)
		}
		prop, _ := props[name].(map[string]any)
		if prop["type"] == "string" {
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: argument %q must be a string", ErrInvalidArgs, name)
			}
		}
	}
	return nil
}

// Invoke runs the named tool and reports its outcome in-band. Unknown
// tools, bad arguments and engine errors all come back as an error result;
// successful payloads are serialized into a single text block.
func (me *Service) Invoke(ctx context.Context, name string, args map[string]any) ToolResult {
	def := findTool(name)
	if def == nil {
		return errorResult(fmt.Errorf("%w: %s", ErrUnknownTool, name))
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validateArgs(def.InputSchema, args); err != nil {
		return errorResult(err)
	}
	payload, err := def.run(ctx, me, args)
	if err != nil {
		return errorResult(err)
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return errorResult(err)
	}
	return textResult(string(b))
}

func textResult(text string) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(err error) ToolResult {
	ret := textResult(err.Error())
	ret.IsError = true
	return ret
}

func runSQLQuery(ctx context.Context, s *Service, args map[string]any) (any, error) {
	query, _ := args["sql"].(string)
	outcome, err := s.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	// The same body the direct endpoint would serve for this statement.
	return normalize(outcome, nil), nil
}

func runListTables(ctx context.Context, s *Service, args map[string]any) (any, error) {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tables": tables}, nil
}

func runDescribeTable(ctx context.Context, s *Service, args map[string]any) (any, error) {
	table, _ := args["table_name"].(string)
	columns, err := s.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return map[string]any{"table": table, "columns": columns}, nil
}

func runGetTableInfo(ctx context.Context, s *Service, args map[string]any) (any, error) {
	table, _ := args["table_name"].(string)
	info, err := s.TableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	return info, nil
}
