// Command evently is a terminal client for the evently API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/joshua-takyi/evently/internal/apiclient"
	"github.com/joshua-takyi/evently/internal/booking"
	"github.com/joshua-takyi/evently/internal/models"
)

const usage = `usage: evently [-url URL] [-lang LOCALE] <command> [args]

commands:
  login <email> <password>   sign in and remember the session
  logout                     end the session
  events [lat,lng]           list events with free seats
  show <event-id>            one event and your booking state
  book <event-id>            book a seat
  cancel <event-id>          cancel your booking for an event
  mine                       your bookings
`

func main() {
	_ = godotenv.Load(".env.local")

	fs := flag.NewFlagSet("evently", flag.ExitOnError)
	baseURL := fs.String("url", envOr("EVENTLY_URL", "http://localhost:8080"), "API base URL")
	lang := fs.String("lang", os.Getenv("EVENTLY_LANG"), "preferred response language")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := apiclient.New(*baseURL, nil).WithLocale(*lang)
	if tokens, err := loadTokens(); err == nil {
		client.SetTokens(tokens)
	}

	if err := run(ctx, client, fs.Arg(0), fs.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *apiclient.Client, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errors.New("login needs <email> <password>")
		}
		tokens, err := c.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if err := saveTokens(tokens); err != nil {
			return err
		}
		fmt.Println("signed in")
		return nil

	case "logout":
		err := c.Logout(ctx)
		_ = os.Remove(tokenPath())
		if err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil

	case "events":
		var near *models.Coordinates
		if len(args) == 1 {
			coords, err := models.ParseCoordinates(args[0])
			if err != nil {
				return err
			}
			near = &coords
		}
		events, err := c.ListEvents(ctx, near)
		if err != nil {
			return err
		}
		printEvents(events)
		return nil

	case "show", "book", "cancel":
		if len(args) != 1 {
			return fmt.Errorf("%s needs <event-id>", cmd)
		}
		eventID, err := uuid.Parse(args[0])
		if err != nil {
			return models.ErrInvalidID
		}
		return eventCommand(ctx, c, cmd, eventID)

	case "mine":
		rows, err := c.MyBookings(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BOOKING\tEVENT\tDATE\tBOOKED AT")
		for _, r := range rows {
			name, date := "?", ""
			if r.Event != nil {
				name, date = r.Event.Name, r.Event.EventDate
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, name, date, r.CreatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// eventCommand drives a booking.View the way a details screen would.
func eventCommand(ctx context.Context, c *apiclient.Client, cmd string, eventID uuid.UUID) error {
	scope := booking.NewScope(ctx)
	defer scope.Close()

	view := booking.NewView(scope, c, eventID)
	if err := view.Load(ctx); err != nil {
		return err
	}

	switch cmd {
	case "book":
		out, err := view.Book(ctx)
		if err != nil {
			return err
		}
		if out.Status == models.BookingAlreadyBooked {
			fmt.Println("already booked")
		} else {
			fmt.Println("booked")
		}
	case "cancel":
		if err := view.Cancel(ctx); err != nil {
			return err
		}
		fmt.Println("cancelled")
		if err := view.Refresh(ctx); err != nil {
			return err
		}
	}

	snap := view.Snapshot()
	ev := snap.Event
	fmt.Printf("%s  %s\n", ev.Name, ev.EventDate)
	if ev.Description != "" {
		fmt.Println(ev.Description)
	}
	fmt.Printf("seats: %d/%d taken, %d left\n", ev.SeatsTaken, ev.TotalSeats, ev.SeatsLeft())
	fmt.Printf("action: %s\n", view.Action())
	return nil
}

func printEvents(events []models.EventWithSeats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tNAME\tLEFT\tDISTANCE")
	for _, ev := range events {
		distance := ""
		if ev.DistanceKm != nil {
			distance = fmt.Sprintf("%.1f km", *ev.DistanceKm)
		}
		left := fmt.Sprint(ev.SeatsLeft())
		if ev.IsFull() {
			left = "full"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ev.ID, ev.EventDate, ev.Name, left, distance)
	}
	_ = w.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func tokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "evently", "session.json")
}

func loadTokens() (apiclient.Tokens, error) {
	var t apiclient.Tokens
	raw, err := os.ReadFile(tokenPath())
	if err != nil {
		return t, err
	}
	err = json.Unmarshal(raw, &t)
	return t, err
}

func saveTokens(t apiclient.Tokens) error {
	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
