package bboard

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// Role is the closed authorization class carried on a user. It is stored
// and transferred opaquely; no role-specific behavior lives in this service.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User is the root of the owned entity graph.
type User struct {
	ID       int64
	Name     string
	Login    string
	Password string
	Email    string
	Role     Role
}

type Post struct {
	ID      int64
	Message string
	Date    pgtype.Date
}

type Pic struct {
	ID        int64
	Caption   string
	ImageLink string
}

type Comment struct {
	ID   int64
	Name string
}

type Topic struct {
	ID   int64
	Name string
}

type Tag struct {
	ID   int64
	Name string
}

type Forum struct {
	ID   int64
	Name string
}

type Section struct {
	ID   int64
	Name string
}

// Graph is an arena for one in-memory entity graph. Entities live in
// per-type indexed tables, and every relationship is an explicit id pair:
// owned collections are ordered id slices with set semantics, and
// back-references are single id fields (zero means unset). Wiring a
// back-reference is inserting the reciprocal id, so the structure holds no
// pointer cycles and flattens by walking forward edges only.
//
// Ids are either database ids (graphs loaded from storage) or local ids
// allocated sequentially from 1 (graphs built from a transfer, before
// anything is persisted). The two never mix within one graph.
type Graph struct {
	nextID int64

	Users    map[int64]*User
	Posts    map[int64]*Post
	Pics     map[int64]*Pic
	Comments map[int64]*Comment
	Topics   map[int64]*Topic
	Tags     map[int64]*Tag
	Forums   map[int64]*Forum
	Sections map[int64]*Section

	// Owned collections, forward direction. Ordered, duplicate-free.
	UserPosts     map[int64][]int64
	UserTopics    map[int64][]int64
	UserComments  map[int64][]int64
	PostPics      map[int64][]int64
	PostComments  map[int64][]int64
	TopicPosts    map[int64][]int64
	TopicTags     map[int64][]int64
	TagTopics     map[int64][]int64
	ForumTopics   map[int64][]int64
	SectionForums map[int64][]int64

	// Back-references, single id each.
	PostUser     map[int64]int64
	PostTopic    map[int64]int64
	PicPost      map[int64]int64
	CommentUser  map[int64]int64
	CommentPost  map[int64]int64
	TopicUser    map[int64]int64
	TopicForum   map[int64]int64
	ForumSection map[int64]int64
}

func NewGraph() *Graph {
	return &Graph{
		Users:    make(map[int64]*User),
		Posts:    make(map[int64]*Post),
		Pics:     make(map[int64]*Pic),
		Comments: make(map[int64]*Comment),
		Topics:   make(map[int64]*Topic),
		Tags:     make(map[int64]*Tag),
		Forums:   make(map[int64]*Forum),
		Sections: make(map[int64]*Section),

		UserPosts:     make(map[int64][]int64),
		UserTopics:    make(map[int64][]int64),
		UserComments:  make(map[int64][]int64),
		PostPics:      make(map[int64][]int64),
		PostComments:  make(map[int64][]int64),
		TopicPosts:    make(map[int64][]int64),
		TopicTags:     make(map[int64][]int64),
		TagTopics:     make(map[int64][]int64),
		ForumTopics:   make(map[int64][]int64),
		SectionForums: make(map[int64][]int64),

		PostUser:     make(map[int64]int64),
		PostTopic:    make(map[int64]int64),
		PicPost:      make(map[int64]int64),
		CommentUser:  make(map[int64]int64),
		CommentPost:  make(map[int64]int64),
		TopicUser:    make(map[int64]int64),
		TopicForum:   make(map[int64]int64),
		ForumSection: make(map[int64]int64),
	}
}

// alloc hands out the next local id.
func (g *Graph) alloc() int64 {
	g.nextID++
	return g.nextID
}

// track keeps nextID above any explicitly assigned id so a later alloc
// cannot collide with an id that came from storage.
func (g *Graph) track(id int64) int64 {
	if id > g.nextID {
		g.nextID = id
	}
	return id
}

func (g *Graph) PutUser(u *User) int64 {
	if u.ID == 0 {
		u.ID = g.alloc()
	}
	g.Users[g.track(u.ID)] = u
	return u.ID
}

func (g *Graph) PutPost(p *Post) int64 {
	if p.ID == 0 {
		p.ID = g.alloc()
	}
	g.Posts[g.track(p.ID)] = p
	return p.ID
}

func (g *Graph) PutPic(p *Pic) int64 {
	if p.ID == 0 {
		p.ID = g.alloc()
	}
	g.Pics[g.track(p.ID)] = p
	return p.ID
}

func (g *Graph) PutComment(c *Comment) int64 {
	if c.ID == 0 {
		c.ID = g.alloc()
	}
	g.Comments[g.track(c.ID)] = c
	return c.ID
}

func (g *Graph) PutTopic(t *Topic) int64 {
	if t.ID == 0 {
		t.ID = g.alloc()
	}
	g.Topics[g.track(t.ID)] = t
	return t.ID
}

func (g *Graph) PutTag(t *Tag) int64 {
	if t.ID == 0 {
		t.ID = g.alloc()
	}
	g.Tags[g.track(t.ID)] = t
	return t.ID
}

func (g *Graph) PutForum(f *Forum) int64 {
	if f.ID == 0 {
		f.ID = g.alloc()
	}
	g.Forums[g.track(f.ID)] = f
	return f.ID
}

func (g *Graph) PutSection(s *Section) int64 {
	if s.ID == 0 {
		s.ID = g.alloc()
	}
	g.Sections[g.track(s.ID)] = s
	return s.ID
}

// addLink appends id to the collection unless it is already present,
// mirroring set semantics while keeping insertion order deterministic.
func addLink(coll map[int64][]int64, owner, id int64) {
	for _, existing := range coll[owner] {
		if existing == id {
			return
		}
	}
	coll[owner] = append(coll[owner], id)
}

// Validate checks mutual consistency of every relationship reachable from
// the given user: each forward reference must have its reciprocal
// back-reference and vice versa. It is primarily a test aid and a guard in
// the create path before anything is written.
func (g *Graph) Validate(userID int64) error {
	if _, ok := g.Users[userID]; !ok {
		return fmt.Errorf("user %d not in graph", userID)
	}
	for _, pid := range g.UserPosts[userID] {
		if g.PostUser[pid] != userID {
			return fmt.Errorf("post %d missing user back-reference", pid)
		}
		for _, picID := range g.PostPics[pid] {
			if g.PicPost[picID] != pid {
				return fmt.Errorf("pic %d missing post back-reference", picID)
			}
		}
	}
	for _, cid := range g.UserComments[userID] {
		if g.CommentUser[cid] != userID {
			return fmt.Errorf("comment %d missing user back-reference", cid)
		}
	}
	for _, tid := range g.UserTopics[userID] {
		if g.TopicUser[tid] != userID {
			return fmt.Errorf("topic %d missing user back-reference", tid)
		}
		for _, tagID := range g.TopicTags[tid] {
			found := false
			for _, back := range g.TagTopics[tagID] {
				if back == tid {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("tag %d missing reverse topic %d", tagID, tid)
			}
		}
		if fid := g.TopicForum[tid]; fid != 0 {
			found := false
			for _, back := range g.ForumTopics[fid] {
				if back == tid {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("forum %d missing reverse topic %d", fid, tid)
			}
			if sid := g.ForumSection[fid]; sid != 0 {
				found = false
				for _, back := range g.SectionForums[sid] {
					if back == fid {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("section %d missing reverse forum %d", sid, fid)
				}
			}
		}
	}
	return nil
}
