// Package demotools contributes a handful of example tools to the default toolbox table.
// Importing it for side effects is enough: every tool is submitted from init and
// becomes available through toolbox.CollectAll.
package demotools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/schema"
)

// AddArgs are the operands of add.
type AddArgs struct {
	A int `json:"a" description:"First operand"`
	B int `json:"b" description:"Second operand"`
}

// GreetArgs name the person to greet.
type GreetArgs struct {
	Name     string  `json:"name" description:"Who to greet"`
	Greeting *string `json:"greeting" description:"Greeting word, Hello by default"`
}

// WeatherArgs select a city and a temperature unit.
type WeatherArgs struct {
	City string  `json:"city"`
	Unit *string `json:"unit" enum:"celsius,fahrenheit" description:"Temperature unit, celsius by default"`
}

// Weather is a canned forecast.
type Weather struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
	Conditions  string  `json:"conditions"`
}

// FactorialArgs hold the input of factorial.
type FactorialArgs struct {
	N int `json:"n" description:"Non-negative integer, at most 20"`
}

// Validate rejects inputs whose factorial overflows int64.
func (a FactorialArgs) Validate() error {
	if a.N < 0 || a.N > 20 {
		return fmt.Errorf("n must be between 0 and 20, got %d", a.N)
	}
	return nil
}

// BookingID is a positional newtype: callers send ["ABC123"].
type BookingID = schema.Newtype[string]

// Booking is the record returned by lookup_booking.
type Booking struct {
	ID        string    `json:"id"`
	Passenger string    `json:"passenger"`
	Departure time.Time `json:"departure"`
}

var errUnknownBooking = errors.New("unknown booking")

var bookings = map[string]Booking{
	"ABC123": {ID: "ABC123", Passenger: "Ada Lovelace", Departure: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)},
}

// Now is the clock used by today; tests replace it.
var Now = time.Now

func init() {
	toolbox.SubmitTool("add", "Add two integers", Add)
	toolbox.SubmitTool("greet", "Greet someone by name", Greet)
	toolbox.SubmitTool("is_even", "Report whether an integer is even", IsEven)
	toolbox.SubmitTool("concat", "Concatenate a string with an integer, positional arguments", Concat)
	toolbox.SubmitTool("today", "Current date in UTC as YYYY-MM-DD", Today)
	toolbox.SubmitTool("weather", "Canned weather report for a city", CurrentWeather,
		toolbox.WithTags("demo", "weather"), toolbox.WithVersion("1"))
	toolbox.SubmitTool("factorial", "Factorial of n", Factorial, toolbox.WithTimeout(time.Second))
	toolbox.SubmitTool("lookup_booking", "Find a booking by its identifier", LookupBooking)
}

func Add(_ context.Context, a AddArgs) (int, error) {
	return a.A + a.B, nil
}

func Greet(_ context.Context, a GreetArgs) (string, error) {
	greeting := "Hello"
	if a.Greeting != nil && *a.Greeting != "" {
		greeting = *a.Greeting
	}
	return fmt.Sprintf("%s, %s!", greeting, a.Name), nil
}

func IsEven(_ context.Context, n int) (bool, error) {
	return n%2 == 0, nil
}

func Concat(_ context.Context, p schema.Pair[string, int]) (string, error) {
	return fmt.Sprintf("%s%d", p.First, p.Second), nil
}

func Today(_ context.Context, _ schema.Void) (string, error) {
	return Now().UTC().Format(time.DateOnly), nil
}

func CurrentWeather(ctx context.Context, a WeatherArgs) (Weather, error) {
	if err := ctx.Err(); err != nil {
		return Weather{}, err
	}
	w := Weather{City: a.City, Temperature: 21.5, Unit: "celsius", Conditions: "clear"}
	if a.Unit != nil && strings.EqualFold(*a.Unit, "fahrenheit") {
		w.Temperature = w.Temperature*9/5 + 32
		w.Unit = "fahrenheit"
	}
	return w, nil
}

func Factorial(_ context.Context, a FactorialArgs) (int64, error) {
	out := int64(1)
	for i := int64(2); i <= int64(a.N); i++ {
		out *= i
	}
	return out, nil
}

func LookupBooking(_ context.Context, id BookingID) (Booking, error) {
	b, ok := bookings[id.Value]
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s", errUnknownBooking, id.Value)
	}
	return b, nil
}
