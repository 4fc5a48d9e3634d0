package timing_test

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/psantana5/exectime/pkg/timing"
)

func ExampleMeasure() {
	clock := clockwork.NewFakeClock()
	timer := timing.New(timing.NewWriterSink(os.Stdout), timing.WithClock(clock))

	v, err := timing.Measure(timer, "GetData", func() (string, error) {
		clock.Advance(500 * time.Millisecond)
		return "Hello World", nil
	})
	fmt.Println(v, err)

	_, err = timing.Measure(timer, "GetNumber", func() (int, error) {
		clock.Advance(200 * time.Millisecond)
		return 0, errors.New("boom")
	})
	fmt.Println(err)
	// Output:
	// GetData: 500.000 ms
	// Hello World <nil>
	// GetNumber: 200.000 ms (failure: boom)
	// boom
}
