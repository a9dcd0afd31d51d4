package bboard

// GraphConverter translates between the wire transfer shape and the arena
// graph, and repairs every reverse link implied by a forward link. The
// wiring order below is load-bearing: callers depend on the exact
// reciprocal links it produces, including the comment fan-out across posts
// and topics.
type GraphConverter struct {
	// render turns a post message into sanitized HTML for the transfer.
	// Nil disables rendering.
	render func(string) string
}

func NewGraphConverter(render func(string) string) *GraphConverter {
	return &GraphConverter{render: render}
}

// ToUserGraph builds a wired entity graph from a transfer. It first does a
// structural copy of the nested transfer into arena entries, then repairs
// back-references so that every bidirectional relationship reachable from
// the returned user id is mutually consistent.
func (c *GraphConverter) ToUserGraph(t UserTransfer) (*Graph, int64) {
	g := NewGraph()

	// Structural copy.
	userID := g.PutUser(&User{
		Name:     t.Name,
		Login:    t.Login,
		Password: t.Password,
		Email:    t.Email,
		Role:     t.Role,
	})

	for _, ct := range t.Comments {
		cid := g.PutComment(&Comment{Name: ct.Name})
		addLink(g.UserComments, userID, cid)
	}

	for _, pt := range t.Posts {
		pid := c.copyPost(g, pt)
		addLink(g.UserPosts, userID, pid)
	}

	for _, tt := range t.Topics {
		tid := g.PutTopic(&Topic{Name: tt.Name})
		addLink(g.UserTopics, userID, tid)

		for _, tagt := range tt.Tags {
			tagID := g.PutTag(&Tag{Name: tagt.Name})
			addLink(g.TopicTags, tid, tagID)
		}
		if tt.Forum != nil {
			fid := g.PutForum(&Forum{Name: tt.Forum.Name})
			g.TopicForum[tid] = fid
			if tt.Forum.Section != nil {
				sid := g.PutSection(&Section{Name: tt.Forum.Section.Name})
				g.ForumSection[fid] = sid
			}
		}
		for _, pt := range tt.Posts {
			pid := c.copyPost(g, pt)
			addLink(g.TopicPosts, tid, pid)
		}
	}

	c.wire(g, userID)
	return g, userID
}

func (c *GraphConverter) copyPost(g *Graph, pt PostTransfer) int64 {
	pid := g.PutPost(&Post{Message: pt.Message, Date: pt.Date.pg()})
	for _, pict := range pt.Pics {
		picID := g.PutPic(&Pic{Caption: pict.Caption, ImageLink: pict.ImageLink})
		addLink(g.PostPics, pid, picID)
	}
	for _, ct := range pt.Comments {
		cid := g.PutComment(&Comment{Name: ct.Name})
		addLink(g.PostComments, pid, cid)
	}
	return pid
}

// wire repairs back-references for everything owned by the user. Every
// top-level comment is unioned into every post's comment set, and each
// topic re-points those comments at each of its posts in turn; both
// fan-outs reproduce the documented persistence behavior and must not be
// narrowed here.
func (c *GraphConverter) wire(g *Graph, userID int64) {
	comments := g.UserComments[userID]
	for _, cid := range comments {
		g.CommentUser[cid] = userID
	}

	posts := g.UserPosts[userID]
	for _, pid := range posts {
		g.PostUser[pid] = userID
		for _, cid := range comments {
			addLink(g.PostComments, pid, cid)
		}
		for _, picID := range g.PostPics[pid] {
			g.PicPost[picID] = pid
		}
	}

	for _, tid := range g.UserTopics[userID] {
		for _, tagID := range g.TopicTags[tid] {
			addLink(g.TagTopics, tagID, tid)
		}
		g.TopicUser[tid] = userID
		for _, pid := range posts {
			addLink(g.TopicPosts, tid, pid)
		}
		for _, pid := range g.TopicPosts[tid] {
			g.PostTopic[pid] = tid
			for _, cid := range comments {
				g.CommentPost[cid] = pid
			}
		}
		if fid := g.TopicForum[tid]; fid != 0 {
			addLink(g.ForumTopics, fid, tid)
			if sid := g.ForumSection[fid]; sid != 0 {
				addLink(g.SectionForums, sid, fid)
			}
		}
	}
}

// UserToTransfer flattens the graph rooted at userID into the wire shape.
// Only forward edges are walked, so the traversal terminates without any
// cycle bookkeeping.
func (c *GraphConverter) UserToTransfer(g *Graph, userID int64) UserTransfer {
	u := g.Users[userID]
	if u == nil {
		return UserTransfer{}
	}

	t := UserTransfer{
		ID:       u.ID,
		Name:     u.Name,
		Login:    u.Login,
		Password: u.Password,
		Email:    u.Email,
		Role:     u.Role,
		Posts:    []PostTransfer{},
		Topics:   []TopicTransfer{},
		Comments: []CommentTransfer{},
	}

	for _, pid := range g.UserPosts[userID] {
		t.Posts = append(t.Posts, c.postToTransfer(g, pid))
	}
	for _, tid := range g.UserTopics[userID] {
		t.Topics = append(t.Topics, c.topicToTransfer(g, tid))
	}
	for _, cid := range g.UserComments[userID] {
		t.Comments = append(t.Comments, commentToTransfer(g.Comments[cid]))
	}
	return t
}

// UsersToTransfers converts each user in order.
func (c *GraphConverter) UsersToTransfers(graphs []*Graph, ids []int64) []UserTransfer {
	out := make([]UserTransfer, 0, len(ids))
	for i, id := range ids {
		out = append(out, c.UserToTransfer(graphs[i], id))
	}
	return out
}

func (c *GraphConverter) postToTransfer(g *Graph, postID int64) PostTransfer {
	p := g.Posts[postID]
	t := PostTransfer{
		ID:       p.ID,
		Message:  p.Message,
		Date:     dateFromPg(p.Date),
		Pics:     []PicTransfer{},
		Comments: []CommentTransfer{},
	}
	if c.render != nil {
		t.MessageHTML = c.render(p.Message)
	}
	for _, picID := range g.PostPics[postID] {
		pic := g.Pics[picID]
		t.Pics = append(t.Pics, PicTransfer{ID: pic.ID, Caption: pic.Caption, ImageLink: pic.ImageLink})
	}
	for _, cid := range g.PostComments[postID] {
		t.Comments = append(t.Comments, commentToTransfer(g.Comments[cid]))
	}
	return t
}

func (c *GraphConverter) topicToTransfer(g *Graph, topicID int64) TopicTransfer {
	topic := g.Topics[topicID]
	t := TopicTransfer{
		ID:   topic.ID,
		Name: topic.Name,
		Tags: []TagTransfer{},
	}
	for _, tagID := range g.TopicTags[topicID] {
		tag := g.Tags[tagID]
		t.Tags = append(t.Tags, TagTransfer{ID: tag.ID, Name: tag.Name})
	}
	if fid := g.TopicForum[topicID]; fid != 0 {
		f := g.Forums[fid]
		ft := &ForumTransfer{ID: f.ID, Name: f.Name}
		if sid := g.ForumSection[fid]; sid != 0 {
			s := g.Sections[sid]
			ft.Section = &SectionTransfer{ID: s.ID, Name: s.Name}
		}
		t.Forum = ft
	}
	for _, pid := range g.TopicPosts[topicID] {
		t.Posts = append(t.Posts, c.postToTransfer(g, pid))
	}
	return t
}

func commentToTransfer(c *Comment) CommentTransfer {
	return CommentTransfer{ID: c.ID, Name: c.Name}
}
