package models

// Vote records userID's vote for optionID on the post's poll. On a
// single-choice poll any earlier vote by the user is retracted first, so
// re-voting for the same option leaves the poll unchanged.
func (d *DB) Vote(postID, userID, optionID int) (*Poll, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.Now()
	p, err := d.modifyPost(postID, func(p *Post) error {
		poll := p.Poll
		if poll == nil {
			return ErrNoPoll
		}
		if poll.EndTime != nil && now.After(*poll.EndTime) {
			return ErrPollClosed
		}
		oi := indexOf(poll.Options, func(o *PollOption) bool { return o.ID == optionID })
		if oi < 0 {
			return ErrOptionNotFound
		}

		if !poll.AllowMultiple {
			for i := range poll.Options {
				o := &poll.Options[i]
				if contains(o.Voters, userID) {
					o.Voters = without(o.Voters, userID)
					o.Votes = max(0, o.Votes-1)
				}
			}
		}
		o := &poll.Options[oi]
		if !contains(o.Voters, userID) {
			o.Voters = append(o.Voters, userID)
			o.Votes++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPostNotFound
	}
	return p.Poll, nil
}

// VotedOptions returns the ids of the options userID voted for.
func (p *Poll) VotedOptions(userID int) []int {
	var ids []int
	for _, o := range p.Options {
		if contains(o.Voters, userID) {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// TotalVotes sums the votes over all options.
func (p *Poll) TotalVotes() int {
	n := 0
	for _, o := range p.Options {
		n += o.Votes
	}
	return n
}
