package wasm_test

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strager/brainfxxck/bf"
	"github.com/strager/brainfxxck/wasm"
)

const helloWorld = `
++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.
`

// run parses, compiles and executes source, returning stdout and the final
// machine state.
func run(ctx context.Context, rt *wasm.Runtime, source string, optimize bool, stdin string, tapeSize int) (string, wasm.Result, error) {
	program, err := bf.Parse([]byte(source), optimize)
	Expect(err).NotTo(HaveOccurred())

	module, err := wasm.CompileToWASM(program, wasm.Options{TapeSize: tapeSize})
	Expect(err).NotTo(HaveOccurred())

	var stdout bytes.Buffer
	result, err := rt.Run(ctx, module, strings.NewReader(stdin), &stdout)
	return stdout.String(), result, err
}

var _ = Describe("Runtime", func() {
	var (
		ctx context.Context
		rt  *wasm.Runtime
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		rt, err = wasm.NewRuntime(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(rt.Close(ctx)).To(Succeed())
	})

	It("should print hello world", func() {
		out, _, err := run(ctx, rt, helloWorld, true, "", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("Hello World!\n"))
	})

	It("should echo input until end of input", func() {
		// EOF reads as 255; adding 1 makes the loop stop.
		out, _, err := run(ctx, rt, ",+[-.,+]", true, "echo me", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("echo me"))
	})

	It("should store 255 on end of input", func() {
		_, result, err := run(ctx, rt, ",", true, "", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tape[0]).To(Equal(byte(255)))
	})

	It("should wrap cell arithmetic", func() {
		_, result, err := run(ctx, rt, "->"+strings.Repeat("+", 257), true, "", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tape[0]).To(Equal(byte(255)))
		Expect(result.Tape[1]).To(Equal(byte(1)))
	})

	It("should wrap the cursor at both ends of the tape", func() {
		_, result, err := run(ctx, rt, "<+<++", true, "", 16)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tape).To(HaveLen(16))
		Expect(result.Tape[15]).To(Equal(byte(1)))
		Expect(result.Tape[14]).To(Equal(byte(2)))
		Expect(result.Cursor).To(Equal(uint32(14)))

		_, result, err = run(ctx, rt, strings.Repeat(">", 17)+"+", false, "", 16)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Cursor).To(Equal(uint32(1)))
		Expect(result.Tape[1]).To(Equal(byte(1)))
	})

	It("should skip a loop whose cell is zero", func() {
		out, _, err := run(ctx, rt, "[.]+.", true, "", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("\x01"))
	})

	It("should clear cells with Set", func() {
		_, result, err := run(ctx, rt, "+++++[-]>++[+]>+", true, "", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Tape[:3]).To(Equal([]byte{0, 0, 1}))
		Expect(result.Cursor).To(Equal(uint32(2)))
	})

	It("should be reusable across runs", func() {
		for i := 0; i < 3; i++ {
			out, _, err := run(ctx, rt, strings.Repeat("+", 33)+".", true, "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("!"))
		}
	})

	It("should stop a program that never finishes", func() {
		timeoutCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		_, _, err := run(timeoutCtx, rt, "+[]", true, "", 0)
		Expect(err).To(MatchError(wasm.ErrTimeout))
	})

	It("should reject modules that are not WebAssembly", func() {
		_, err := rt.Run(ctx, []byte("not wasm"), nil, &bytes.Buffer{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Optimized and unoptimized programs", func() {
	var (
		ctx context.Context
		rt  *wasm.Runtime
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		rt, err = wasm.NewRuntime(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(rt.Close(ctx)).To(Succeed())
	})

	expectEquivalent := func(source, stdin string) {
		rawOut, rawResult, err := run(ctx, rt, source, false, stdin, 64)
		Expect(err).NotTo(HaveOccurred())

		optOut, optResult, err := run(ctx, rt, source, true, stdin, 64)
		Expect(err).NotTo(HaveOccurred())

		Expect(optOut).To(Equal(rawOut), "output of %q", source)
		Expect(optResult).To(Equal(rawResult), "machine state of %q", source)
	}

	DescribeTable("should behave identically",
		expectEquivalent,
		Entry("hello world", helloWorld, ""),
		Entry("copy loop", "++[>+<-]>.", ""),
		Entry("clear loops", "+++[-]>---[+]>+[+-+]<<.>.>.", ""),
		Entry("cancelling runs", "+><+>+-<.><.", ""),
		Entry("nested loops", "++[>++[>++<-]<-]>>.", ""),
		Entry("cat", ",+[-.,+]", "some input"),
		Entry("wrapping cursor", "<<<+>>>>>>+[<]", ""),
		Entry("wrapping cells", "--[--->+<]>.", ""),
	)

	It("should behave identically for random loop-free programs", func() {
		const alphabet = "+-><.,"
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			var sb strings.Builder
			for j := rng.Intn(200); j > 0; j-- {
				sb.WriteByte(alphabet[rng.Intn(len(alphabet))])
			}
			expectEquivalent(sb.String(), "random stdin bytes")
		}
	})
})
