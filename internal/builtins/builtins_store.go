package builtins

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/runtime"
)

// Open stores are tracked in a process-wide handle table. Programs see
// opaque integer handles so store values stay plain data.
var (
	storeMu     sync.Mutex
	storeNextID int64 = 1
	storeTable        = map[int64]*sql.DB{}
)

func registerStore() {
	register(&Builtin{Name: "store_open", Capability: config.CapabilityStorage, MinArgs: 1, MaxArgs: 1, Fn: builtinStoreOpen})
	register(&Builtin{Name: "store_exec", Capability: config.CapabilityStorage, MinArgs: 2, MaxArgs: -1, Fn: builtinStoreExec})
	register(&Builtin{Name: "store_query", Capability: config.CapabilityStorage, MinArgs: 2, MaxArgs: -1, Fn: builtinStoreQuery})
	register(&Builtin{Name: "store_close", Capability: config.CapabilityStorage, MinArgs: 1, MaxArgs: 1, Fn: builtinStoreClose})
}

func builtinStoreOpen(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagString {
		return typeError(ctx, "store_open", args[0])
	}
	db, err := sql.Open("sqlite", args[0].AsString())
	if err != nil {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_open: %v", err)
		return runtime.Void()
	}
	storeMu.Lock()
	id := storeNextID
	storeNextID++
	storeTable[id] = db
	storeMu.Unlock()
	return runtime.IntVal(id)
}

func lookupStore(ctx *Context, v runtime.Value) (*sql.DB, bool) {
	if v.Tag != runtime.TagInt {
		typeError(ctx, "store handle", v)
		return nil, false
	}
	storeMu.Lock()
	db, ok := storeTable[v.AsInt()]
	storeMu.Unlock()
	if !ok {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "unknown store handle %d", v.AsInt())
		return nil, false
	}
	return db, true
}

func storeParams(args []runtime.Value) []any {
	params := make([]any, 0, len(args))
	for _, v := range args {
		switch v.Tag {
		case runtime.TagInt:
			params = append(params, v.AsInt())
		case runtime.TagFloat:
			params = append(params, v.AsFloat())
		case runtime.TagString:
			params = append(params, v.AsString())
		case runtime.TagVoid:
			params = append(params, nil)
		default:
			params = append(params, v.Inspect())
		}
	}
	return params
}

func builtinStoreExec(ctx *Context, args []runtime.Value) runtime.Value {
	db, ok := lookupStore(ctx, args[0])
	if !ok {
		return runtime.Void()
	}
	if args[1].Tag != runtime.TagString {
		return typeError(ctx, "store_exec", args[1])
	}
	res, err := db.Exec(args[1].AsString(), storeParams(args[2:])...)
	if err != nil {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_exec: %v", err)
		return runtime.Void()
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return runtime.IntVal(affected)
}

func builtinStoreQuery(ctx *Context, args []runtime.Value) runtime.Value {
	db, ok := lookupStore(ctx, args[0])
	if !ok {
		return runtime.Void()
	}
	if args[1].Tag != runtime.TagString {
		return typeError(ctx, "store_query", args[1])
	}
	rows, err := db.Query(args[1].AsString(), storeParams(args[2:])...)
	if err != nil {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_query: %v", err)
		return runtime.Void()
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_query: %v", err)
		return runtime.Void()
	}

	out := &runtime.List{}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_query: %v", err)
			return runtime.Void()
		}
		rec := runtime.NewDict()
		for i, col := range cols {
			rec.Set(col, sqlCellValue(cells[i]))
		}
		out.Items = append(out.Items, runtime.DictVal(rec))
	}
	if err := rows.Err(); err != nil {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_query: %v", err)
		return runtime.Void()
	}
	return runtime.ListVal(out)
}

func sqlCellValue(cell any) runtime.Value {
	switch c := cell.(type) {
	case nil:
		return runtime.Void()
	case int64:
		return runtime.IntVal(c)
	case float64:
		return runtime.FloatVal(c)
	case string:
		return runtime.StringVal(c)
	case []byte:
		return runtime.StringVal(string(c))
	case bool:
		return runtime.BoolVal(c)
	default:
		return runtime.StringVal(fmt.Sprintf("%v", c))
	}
}

func builtinStoreClose(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagInt {
		return typeError(ctx, "store_close", args[0])
	}
	storeMu.Lock()
	db, ok := storeTable[args[0].AsInt()]
	if ok {
		delete(storeTable, args[0].AsInt())
	}
	storeMu.Unlock()
	if !ok {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "unknown store handle %d", args[0].AsInt())
		return runtime.Void()
	}
	if err := db.Close(); err != nil {
		runtime.RaiseError(runtime.ErrStorage, ctx.Line, "store_close: %v", err)
	}
	return runtime.Void()
}
