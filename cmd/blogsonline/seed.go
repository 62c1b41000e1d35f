package main

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/blogs-online/server/internal/client"
	"github.com/blogs-online/server/internal/model"
	"github.com/blogs-online/server/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var writers = []struct {
	name  string
	email string
}{
	{"Ada Lovelace", "ada@blogs.example"},
	{"Grace Hopper", "grace@blogs.example"},
	{"Ken Thompson", "ken@blogs.example"},
	{"Barbara Liskov", "barbara@blogs.example"},
	{"Rob Pike", "rob@blogs.example"},
}

var seedPosts = []struct {
	title       string
	description string
	tag         string
}{
	{"Getting started with Go modules", "A walk through go.mod, go.sum and minimal version selection.", "golang"},
	{"Why I stopped using ORMs", "Plain SQL with a thin helper turned out to be simpler.", "database"},
	{"Designing REST endpoints people like", "Consistent nouns, boring status codes and JSON errors.", "web"},
	{"Structured logging in practice", "Fields beat format strings once you grep production logs.", "devops"},
	{"Concurrency patterns worth knowing", "Fan-out, fan-in and cancellation with context.", "golang"},
	{"Indexing strategies for document stores", "Compound indexes, selectivity and the order of keys.", "database"},
	{"Ask the community: favourite editor setup?", "Share your config and the one plugin you cannot live without.", "discussion"},
	{"Shipping small services on a budget", "One binary, one SQLite file and a systemd unit.", "devops"},
}

var seedComments = []string{
	"Great write-up, thanks for sharing.",
	"I disagree with the second point but the rest is spot on.",
	"Has anyone benchmarked this approach?",
	"Bookmarked for the next time I need it.",
	"Could you expand on the error handling part?",
	"This matches what we ended up doing at work.",
	"Nice and concise. More posts like this please.",
}

var seedTags = []string{"golang", "database", "web", "devops", "discussion"}

func cmdSeed(c *cli.Context) error {
	baseURL := c.String("url")
	log := logrus.StandardLogger()
	log.Infof("Seeding Blogs Online at %s...", baseURL)

	var clients []*client.Client
	for _, w := range writers {
		cl := client.New(baseURL)
		if _, err := cl.Register(w.name, w.email, ""); err != nil {
			return fmt.Errorf("register %s: %w", w.email, err)
		}
		if err := cl.Login(w.email); err != nil {
			return fmt.Errorf("login %s: %w", w.email, err)
		}
		log.Infof("✓ Registered %s <%s>", w.name, w.email)
		clients = append(clients, cl)
	}

	var postIDs []string
	for _, p := range seedPosts {
		idx := rand.Intn(len(clients))
		res, err := clients[idx].CreatePost(model.Post{
			AuthorName:  writers[idx].name,
			AuthorEmail: writers[idx].email,
			Title:       p.title,
			Description: p.description,
			Tag:         p.tag,
		})
		if err != nil || res.InsertedID == nil {
			log.Warnf("✗ Failed to create post %q: %v", p.title, err)
			continue
		}
		postIDs = append(postIDs, *res.InsertedID)
		log.Infof("✓ Posted %q (by %s)", p.title, writers[idx].name)

		// Spread out created_at so the new sort has something to order.
		time.Sleep(20 * time.Millisecond)
	}
	if len(postIDs) == 0 {
		return errors.New("no posts were created")
	}

	var commentIDs []string
	for i, postID := range postIDs {
		for n := rand.Intn(3) + 1; n > 0; n-- {
			idx := rand.Intn(len(clients))
			res, err := clients[idx].AddComment(model.Comment{
				PostID:         postID,
				PostTitle:      seedPosts[i%len(seedPosts)].title,
				CommenterName:  writers[idx].name,
				CommenterEmail: writers[idx].email,
				Text:           seedComments[rand.Intn(len(seedComments))],
			})
			if err != nil {
				log.Warnf("✗ Failed to comment on %s: %v", postID, err)
				continue
			}
			if res.InsertedID != nil {
				commentIDs = append(commentIDs, *res.InsertedID)
			}
		}
	}
	log.Infof("✓ Added %d comments", len(commentIDs))

	for _, postID := range postIDs {
		up, down := rand.Intn(20), rand.Intn(5)
		cl := clients[rand.Intn(len(clients))]
		if _, err := cl.Vote(postID, store.VotePatch{UpVote: &up, DownVote: &down}); err != nil {
			log.Warnf("✗ Failed to vote on %s: %v", postID, err)
		}
	}
	log.Info("✓ Added votes")

	reasons := []string{"spam", "off-topic", "abusive"}
	reported := 0
	for i := 0; i < 3 && i < len(commentIDs); i++ {
		idx := rand.Intn(len(clients))
		_, err := clients[idx].Report(model.Report{
			ReporterEmail: writers[idx].email,
			CommentID:     commentIDs[i],
			Feedback:      reasons[rand.Intn(len(reasons))],
		})
		if err == nil {
			reported++
		}
	}
	log.Infof("✓ Filed %d reports", reported)

	// Tags and announcements need an admin; the first writer is the usual candidate.
	admin := clients[0]
	var apiErr *client.APIError
	for _, label := range seedTags {
		if _, err := admin.CreateTag(label); err != nil {
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
				log.Warnf("✗ %s is not an admin; run `blogsonline promote --email %s` and seed again for tags and announcements",
					writers[0].email, writers[0].email)
				break
			}
			log.Warnf("✗ Failed to create tag %s: %v", label, err)
		}
	}
	if _, err := admin.Announce(model.Announcement{
		AuthorName:  writers[0].name,
		Title:       "Welcome to Blogs Online",
		Description: "Be kind, stay on topic and report anything that breaks the rules.",
	}); err == nil {
		log.Info("✓ Published announcement")
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Printf("Users:    %d\n", len(writers))
	fmt.Printf("Posts:    %d\n", len(postIDs))
	fmt.Printf("Comments: %d\n", len(commentIDs))
	fmt.Println("\nAPI at:", baseURL)
	return nil
}
