package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/auth"
	"github.com/Nevojt/project-chat-sub000/internal/config"
	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
	"github.com/Nevojt/project-chat-sub000/internal/storage"
	"github.com/Nevojt/project-chat-sub000/internal/storage/sqlite"
)

// seedOptions describe the dev fixtures to create before signing a token.
type seedOptions struct {
	UserID domain.UserID
	Name   string
	Avatar string
	Room   string
	Ban    bool
	BanFor time.Duration
	Vote   int64
	Rating int
}

func main() {
	var opts seedOptions
	userID := flag.Int64("id", 0, "Existing user id")
	flag.StringVar(&opts.Name, "name", "", "Create a user with this display name")
	flag.StringVar(&opts.Avatar, "avatar", "", "Avatar url for a created user")
	flag.StringVar(&opts.Room, "room", "", "Create this room if it does not exist")
	flag.BoolVar(&opts.Ban, "ban", false, "Ban the user from -room")
	flag.DurationVar(&opts.BanFor, "ban-for", 0, "Ban duration (0 bans forever)")
	flag.Int64Var(&opts.Vote, "vote", 0, "Cast a vote as the user on this message id")
	flag.IntVar(&opts.Rating, "rating", 1, "Vote rating")
	flag.Parse()
	opts.UserID = domain.UserID(*userID)

	if opts.UserID == 0 && opts.Name == "" {
		fmt.Fprintln(os.Stderr, "Usage: token (-id <user-id> | -name <display-name> [-avatar <url>]) [-room <name> [-ban [-ban-for <duration>]]] [-vote <message-id> [-rating <n>]]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to migrate database: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, os.Stdout, store, cfg.JWT, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// run applies the seed options and prints a signed token for the user.
func run(ctx context.Context, out io.Writer, store storage.Store, jwtCfg config.JWTConfig, opts seedOptions) error {
	uid := opts.UserID
	if opts.Name != "" {
		user, err := domain.NewUser(0, opts.Name, opts.Avatar)
		if err != nil {
			return fmt.Errorf("invalid user: %w", err)
		}
		if err := store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		uid = user.ID
	} else if _, err := store.GetUserByID(ctx, uid); err != nil {
		return fmt.Errorf("unknown user %s: %w", uid, err)
	}

	if opts.Ban && opts.Room == "" {
		return errors.New("-ban needs -room")
	}
	if opts.Room != "" {
		r, err := store.ResolveRoom(ctx, opts.Room)
		switch {
		case errors.Is(err, core.ErrRoomNotFound):
			r = &domain.Room{Name: opts.Room}
			if err := store.CreateRoom(ctx, r); err != nil {
				return fmt.Errorf("create room: %w", err)
			}
		case err != nil:
			return fmt.Errorf("resolve room: %w", err)
		}
		fmt.Fprintf(out, "Room: %s (%s)\n", r.Name, r.ID)

		if opts.Ban {
			var until *time.Time
			if opts.BanFor > 0 {
				t := time.Now().Add(opts.BanFor)
				until = &t
			}
			if err := store.BanUser(ctx, r.ID, uid, until); err != nil {
				return fmt.Errorf("ban user: %w", err)
			}
			fmt.Fprintf(out, "Banned: %s from %s\n", uid, r.Name)
		}
	}

	if opts.Vote != 0 {
		if err := store.Vote(ctx, opts.Vote, uid, opts.Rating); err != nil {
			return fmt.Errorf("vote: %w", err)
		}
		fmt.Fprintf(out, "Voted: %d on message %d\n", opts.Rating, opts.Vote)
	}

	token, err := auth.NewToken(jwtCfg, uid)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintf(out, "User: %s\n", uid)
	fmt.Fprintf(out, "Token: %s\n", token)
	return nil
}
