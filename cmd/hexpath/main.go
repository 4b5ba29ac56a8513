// Command hexpath finds a path across a saved or generated map and
// prints it turn by turn.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/hexmap/internal/client"
	"github.com/talgya/hexmap/internal/pathfind"
	"github.com/talgya/hexmap/internal/persistence"
	"github.com/talgya/hexmap/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("hexpath failed", "error", err)
		os.Exit(1)
	}
}

var errNoPath = errors.New("no path")

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("hexpath", flag.ContinueOnError)
	fs.SetOutput(out)
	server := fs.String("server", os.Getenv("HEXMAP_URL"), "search on a running server instead of a local map")
	mapFile := fs.String("map", "", "map file ("+persistence.FileExt+"); empty generates one")
	seed := fs.Int64("seed", envIntOrDefault("HEXMAP_SEED", 1), "generation seed")
	width := fs.Int("width", world.DefaultCellCountX, "generated map width in cells")
	height := fs.Int("height", world.DefaultCellCountZ, "generated map height in cells")
	from := fs.String("from", "0,0", "start cell as col,row")
	to := fs.String("to", "", "destination cell as col,row (default: opposite corner)")
	speed := fs.Int("speed", 24, "movement points per turn")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *server != "" {
		return runRemote(client.New(*server, os.Getenv("HEXMAP_ADMIN_KEY")), *from, *to, *speed, out)
	}

	var g *world.Grid
	var err error
	if *mapFile != "" {
		g, err = world.NewGrid(world.DefaultCellCountX, world.DefaultCellCountZ)
		if err != nil {
			return err
		}
		if err := persistence.ReadFile(*mapFile, g); err != nil {
			return fmt.Errorf("reading %s: %w", *mapFile, err)
		}
	} else {
		g, err = world.NewGrid(*width, *height)
		if err != nil {
			return err
		}
		cfg := world.DefaultGenConfig()
		cfg.Seed = *seed
		world.Generate(g, cfg)
	}

	fromCell, err := parseCell(g, *from)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	toArg := *to
	if toArg == "" {
		toArg = fmt.Sprintf("%d,%d", g.CellCountX()-1, g.CellCountZ()-1)
	}
	toCell, err := parseCell(g, toArg)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	s := pathfind.New(g)
	path, ok := s.FindPath(fromCell, toCell, *speed)
	if !ok {
		return fmt.Errorf("%w from %v to %v", errNoPath, fromCell.Coordinates, toCell.Coordinates)
	}

	fmt.Fprintf(out, "%-4s %-12s %-8s %-8s %s\n", "TURN", "CELL", "OFFSET", "DIST", "TERRAIN")
	for _, c := range path {
		col, row := c.Coordinates.Offset()
		fmt.Fprintf(out, "%-4d %-12s %-8s %-8d %s\n",
			s.Turn(c), c.Coordinates, fmt.Sprintf("%d,%d", col, row),
			c.Search.Distance, world.TerrainName(c.TerrainTypeIndex()))
	}
	turns := 0
	if len(path) > 1 {
		turns = s.Turn(toCell) + 1
	}
	fmt.Fprintf(out, "\n%d cells, cost %d, %d turns\n", len(path), toCell.Search.Distance, turns)
	return nil
}

// runRemote asks a server for the path. The server checks the endpoints
// against its own map.
func runRemote(c *client.Client, fromArg, toArg string, speed int, out io.Writer) error {
	st, err := c.Status()
	if err != nil {
		return err
	}
	if toArg == "" {
		toArg = fmt.Sprintf("%d,%d", st.Width-1, st.Height-1)
	}
	fromCol, fromRow, err := parseOffset(fromArg)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	toCol, toRow, err := parseOffset(toArg)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	p, err := c.FindPath(world.FromOffset(fromCol, fromRow), world.FromOffset(toCol, toRow), speed)
	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("%w: %s", errNoPath, apiErr.Message)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%-4s %-12s %-8s %s\n", "TURN", "CELL", "OFFSET", "DIST")
	for _, step := range p.Steps {
		col, row := step.Coordinates.Offset()
		fmt.Fprintf(out, "%-4d %-12s %-8s %d\n",
			step.Turn, step.Coordinates, fmt.Sprintf("%d,%d", col, row), step.Distance)
	}
	turns := 0
	if len(p.Steps) > 1 {
		turns = p.Turns + 1
	}
	fmt.Fprintf(out, "\n%d cells, cost %d, %d turns\n", len(p.Steps), p.Cost, turns)
	return nil
}

func parseOffset(arg string) (col, row int, err error) {
	colStr, rowStr, ok := strings.Cut(arg, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want col,row, got %q", arg)
	}
	if col, err = strconv.Atoi(strings.TrimSpace(colStr)); err != nil {
		return 0, 0, err
	}
	if row, err = strconv.Atoi(strings.TrimSpace(rowStr)); err != nil {
		return 0, 0, err
	}
	return col, row, nil
}

func parseCell(g *world.Grid, arg string) (*world.Cell, error) {
	col, row, err := parseOffset(arg)
	if err != nil {
		return nil, err
	}
	c := g.CellAtOffset(col, row)
	if c == nil {
		return nil, fmt.Errorf("cell %d,%d is off the %dx%d map", col, row, g.CellCountX(), g.CellCountZ())
	}
	return c, nil
}

func envIntOrDefault(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
