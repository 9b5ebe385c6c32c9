package machine

import (
	"fmt"
	"io"

	"github.com/mna/wisp/lang/compiler"
)

const (
	maxFrames    = 64  // MAX_FRAMES, spec.md §3
	frameLocals  = 256 // locals addressable per frame by a single byte
	stackMax     = maxFrames * frameLocals
)

// RuntimeError is returned by Thread.Interpret when bytecode execution
// fails after compilation has already succeeded: a wrong operand type, an
// undefined global, calling a non-callable value, a wrong argument count,
// or stack overflow (spec.md §7). Trace holds one "[line L] in NAME" entry
// per live call frame, innermost first, per spec.md §4.6.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string { return e.Message }

// Thread is one independent virtual machine: its value stack, call-frame
// stack, global table, string-intern table, and the intrusive list of
// every heap object it has allocated (spec.md §3, "VM state"). A Thread is
// single-threaded and owns all of its state; nothing here is safe to share
// across goroutines (spec.md §5).
type Thread struct {
	stack [stackMax]Value
	sp    int

	frames     [maxFrames]callFrame
	frameCount int

	globals table
	strings table

	objects *object
	openUvs *ObjUpvalue

	Stdout io.Writer
}

// NewThread creates a Thread with its native globals (clock) registered,
// writing PRINT output to stdout.
func NewThread(stdout io.Writer) *Thread {
	t := &Thread{Stdout: stdout}
	t.defineNative("clock", nativeClock)
	return t
}

// Close drops the thread's references to its heap objects. The baseline VM
// performs no mark-sweep (spec.md §5), and Close does not walk the object
// list: it clears the list head and leaves the memory to Go's garbage
// collector.
func (t *Thread) Close() {
	t.objects = nil
	t.openUvs = nil
}

func (t *Thread) defineNative(name string, fn NativeFn) {
	nameObj := t.internString(name)
	native := &ObjNative{name: name, fn: fn}
	t.allocate(&native.object, objNative)
	t.globals.set(nameObj, native)
}

// Interpret compiles nothing itself: it wraps an already-compiled
// FunctionProto (the result of compiler.Compile) into a closure, pushes
// the initial call frame, and runs the bytecode to completion.
func (t *Thread) Interpret(proto *compiler.FunctionProto) error {
	fn := &ObjFunction{Proto: proto}
	t.allocate(&fn.object, objFunction)
	closure := &ObjClosure{Fn: fn}
	t.allocate(&closure.object, objClosure)

	t.push(closure)
	t.frames[0] = callFrame{closure: closure, ip: 0, base: t.sp}
	t.frameCount = 1

	return t.run()
}

// --- stack helpers ----------------------------------------------------

func (t *Thread) push(v Value) {
	t.stack[t.sp] = v
	t.sp++
}

func (t *Thread) pop() Value {
	t.sp--
	return t.stack[t.sp]
}

func (t *Thread) peek(distance int) Value {
	return t.stack[t.sp-1-distance]
}

func (t *Thread) resetStack() {
	t.sp = 0
	t.frameCount = 0
	t.openUvs = nil
}

// --- the fetch-decode-execute loop ------------------------------------

// run holds a pointer to the current frame and dispatches one opcode per
// iteration, per spec.md §4.6. The function returns as soon as the initial
// frame returns (frameCount drops to zero) or a runtime error occurs.
func (t *Thread) run() error {
	frame := &t.frames[t.frameCount-1]

	readByte := func() byte {
		b := frame.closure.Fn.Chunk().Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := readByte()
		lo := readByte()
		return int(hi)<<8 | int(lo)
	}
	readRawConstant := func() any {
		return frame.closure.Fn.Chunk().Constants[readByte()]
	}
	readNameConstant := func() *ObjString {
		name, ok := readRawConstant().(string)
		if !ok {
			panic("compiler emitted a non-string name constant")
		}
		return t.internString(name)
	}

	for {
		op := compiler.Opcode(readByte())
		switch op {
		case compiler.NOP:
			// no-op

		case compiler.CONST:
			t.push(t.valueFromConstant(readRawConstant()))
		case compiler.NIL:
			t.push(Nil)
		case compiler.TRUE:
			t.push(Bool(true))
		case compiler.FALSE:
			t.push(Bool(false))
		case compiler.POP:
			t.pop()

		case compiler.GET_LOCAL:
			slot := readByte()
			t.push(t.stack[frame.base+int(slot)])
		case compiler.SET_LOCAL:
			slot := readByte()
			t.stack[frame.base+int(slot)] = t.peek(0)

		case compiler.GET_GLOBAL:
			name := readNameConstant()
			v, ok := t.globals.get(name)
			if !ok {
				return t.runtimeError("undefined variable '%s'", name.chars)
			}
			t.push(v)
		case compiler.DEFINE_GLOBAL:
			name := readNameConstant()
			t.globals.set(name, t.pop())
		case compiler.SET_GLOBAL:
			name := readNameConstant()
			// Check presence first and never touch the table when undefined:
			// spec.md §9 calls out a variant that deletes the global on this
			// error path, which is wrong. The table must be left untouched.
			if _, ok := t.globals.get(name); !ok {
				return t.runtimeError("undefined variable '%s'", name.chars)
			}
			t.globals.set(name, t.peek(0))

		case compiler.GET_UPVALUE:
			slot := readByte()
			t.push(frame.closure.Upvalues[slot].get())
		case compiler.SET_UPVALUE:
			slot := readByte()
			frame.closure.Upvalues[slot].set(t.peek(0))

		case compiler.EQUAL:
			b, a := t.pop(), t.pop()
			t.push(Bool(Equal(a, b)))
		case compiler.GREATER, compiler.LESS:
			b, aok := t.peek(0).(Number)
			a, bok := t.peek(1).(Number)
			if !aok || !bok {
				return t.runtimeError("operands must be numbers")
			}
			t.pop()
			t.pop()
			if op == compiler.GREATER {
				t.push(Bool(a > b))
			} else {
				t.push(Bool(a < b))
			}

		case compiler.ADD:
			bs, bIsStr := t.peek(0).(*ObjString)
			as, aIsStr := t.peek(1).(*ObjString)
			if aIsStr && bIsStr {
				t.pop()
				t.pop()
				t.push(t.internString(as.chars + bs.chars))
				break
			}
			bn, bIsNum := t.peek(0).(Number)
			an, aIsNum := t.peek(1).(Number)
			if aIsNum && bIsNum {
				t.pop()
				t.pop()
				t.push(an + bn)
				break
			}
			return t.runtimeError("operands must be two numbers or two strings")

		case compiler.SUB, compiler.MUL, compiler.DIV:
			bn, bok := t.peek(0).(Number)
			an, aok := t.peek(1).(Number)
			if !aok || !bok {
				return t.runtimeError("operands must be numbers")
			}
			t.pop()
			t.pop()
			switch op {
			case compiler.SUB:
				t.push(an - bn)
			case compiler.MUL:
				t.push(an * bn)
			case compiler.DIV:
				t.push(an / bn)
			}

		case compiler.NOT:
			t.push(Bool(IsFalsey(t.pop())))
		case compiler.NEGATE:
			n, ok := t.peek(0).(Number)
			if !ok {
				return t.runtimeError("operand must be a number")
			}
			t.pop()
			t.push(-n)

		case compiler.PRINT:
			fmt.Fprintln(t.Stdout, t.pop().String())

		case compiler.JUMP:
			offset := readShort()
			frame.ip += offset
		case compiler.JUMP_IF_FALSE:
			offset := readShort()
			if IsFalsey(t.peek(0)) {
				frame.ip += offset
			}
		case compiler.LOOP:
			offset := readShort()
			frame.ip -= offset

		case compiler.CALL:
			argc := int(readByte())
			if err := t.callValue(t.peek(argc), argc); err != nil {
				return err
			}
			frame = &t.frames[t.frameCount-1]

		case compiler.CLOSURE:
			proto, ok := readRawConstant().(*compiler.FunctionProto)
			if !ok {
				panic("compiler emitted a non-function constant for CLOSURE")
			}
			fn := &ObjFunction{Proto: proto}
			t.allocate(&fn.object, objFunction)
			closure := &ObjClosure{Fn: fn, Upvalues: make([]*ObjUpvalue, proto.UpvalueCount)}
			t.allocate(&closure.object, objClosure)
			for i := 0; i < proto.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = t.captureUpvalue(frame.base + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			t.push(closure)

		case compiler.CLOSE_UPVALUE:
			t.closeUpvalues(t.sp - 1)
			t.pop()

		case compiler.RETURN:
			result := t.pop()
			t.closeUpvalues(frame.base)
			t.frameCount--
			if t.frameCount == 0 {
				t.pop() // the top-level closure itself
				return nil
			}
			t.sp = frame.base - 1 // drop the locals and the callee below them
			t.push(result)
			frame = &t.frames[t.frameCount-1]

		default:
			return t.runtimeError("illegal opcode %d", byte(op))
		}
	}
}

// valueFromConstant converts a Chunk constant-pool entry, stored as a raw
// Go value by the compiler, into a machine Value. Strings are interned on
// first use by any frame that loads them.
func (t *Thread) valueFromConstant(raw any) Value {
	switch v := raw.(type) {
	case float64:
		return Number(v)
	case string:
		return t.internString(v)
	case bool:
		return Bool(v)
	default:
		panic(fmt.Sprintf("unexpected constant type %T", raw))
	}
}

// --- calling ------------------------------------------------------------

// callValue implements spec.md §4.6's call_value: dispatch on the callee's
// kind, checking arity for closures and leaving non-callables as a runtime
// error.
func (t *Thread) callValue(callee Value, argc int) error {
	switch c := callee.(type) {
	case *ObjClosure:
		return t.call(c, argc)
	case *ObjNative:
		args := t.stack[t.sp-argc : t.sp]
		result := c.fn(args)
		t.sp -= argc + 1
		t.push(result)
		return nil
	default:
		return t.runtimeError("can only call functions and classes")
	}
}

func (t *Thread) call(closure *ObjClosure, argc int) error {
	if argc != closure.Fn.Arity() {
		return t.runtimeError("expected %d arguments but got %d", closure.Fn.Arity(), argc)
	}
	if t.frameCount == maxFrames {
		return t.runtimeError("stack overflow")
	}
	t.frames[t.frameCount] = callFrame{closure: closure, ip: 0, base: t.sp - argc}
	t.frameCount++
	return nil
}

// --- open upvalue management ---------------------------------------------

// captureUpvalue implements spec.md §4.6's capture_upvalue: the open
// upvalue list is walked in descending-slot order so an existing upvalue
// for this exact slot can be reused, and a new one is inserted at the
// position that keeps the list sorted.
func (t *Thread) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	uv := t.openUvs
	for uv != nil && uv.slot > slot {
		prev = uv
		uv = uv.openNext
	}
	if uv != nil && uv.slot == slot {
		return uv
	}

	created := &ObjUpvalue{location: &t.stack[slot], slot: slot, openNext: uv}
	t.allocate(&created.object, objUpvalue)
	if prev == nil {
		t.openUvs = created
	} else {
		prev.openNext = created
	}
	return created
}

// closeUpvalues implements spec.md §4.6's close_upvalues: every open
// upvalue at or above stack index from is detached from the stack and
// given its own copy of the value.
func (t *Thread) closeUpvalues(from int) {
	for t.openUvs != nil && t.openUvs.slot >= from {
		uv := t.openUvs
		uv.close()
		t.openUvs = uv.openNext
	}
}

// --- runtime errors -------------------------------------------------------

// runtimeError formats msg, captures a stack trace from every live frame
// (innermost first, per spec.md §4.6), resets the VM's stack, and returns
// the resulting *RuntimeError. No runtime error is ever recovered: callers
// must discard the Thread's in-flight execution state and, for a REPL,
// start the next statement fresh.
func (t *Thread) runtimeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	trace := make([]string, 0, t.frameCount)
	for i := t.frameCount - 1; i >= 0; i-- {
		fr := &t.frames[i]
		chunk := fr.closure.Fn.Chunk()
		var line int32
		if idx := fr.ip - 1; idx >= 0 && idx < len(chunk.Lines) {
			line = chunk.Lines[idx]
		}
		name := fr.closure.Fn.Proto.Name
		if name == "" {
			name = "script"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	t.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}
