package models

// ReportPost files a pending report and mirrors it onto the post's report
// list. Reports against unknown posts are still recorded.
func (d *DB) ReportPost(in NewReport) (*Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	reports, err := load[Report](t, KeyReports)
	if err != nil {
		return nil, err
	}
	now := d.Now()
	r := Report{
		ID:         now.UnixMilli(),
		PostID:     in.PostID,
		ReporterID: in.ReporterID,
		Reason:     in.Reason,
		Type:       in.Type,
		CreatedAt:  now,
		Status:     ReportPending,
	}
	if r.Type == "" {
		r.Type = ReportOther
	}
	reports = append(reports, r)
	if err := stage(t, KeyReports, reports); err != nil {
		return nil, err
	}

	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	if i := indexOf(posts, func(p *Post) bool { return p.ID == in.PostID }); i >= 0 {
		posts[i].Reports = append(posts[i].Reports, r)
		posts[i].UpdatedAt = now
		if err := stage(t, KeyPosts, posts); err != nil {
			return nil, err
		}
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Reports lists reports against postID, or every report when postID is 0.
func (d *DB) Reports(postID int) ([]Report, error) {
	all, err := load[Report](d.read(), KeyReports)
	if err != nil {
		return nil, err
	}
	if postID == 0 {
		return all, nil
	}
	var out []Report
	for _, r := range all {
		if r.PostID == postID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ResolveReport sets the status on the report and on its mirror in the
// post. It returns nil if the id is unknown.
func (d *DB) ResolveReport(id int64, status ReportStatus) (*Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.begin()
	reports, err := load[Report](t, KeyReports)
	if err != nil {
		return nil, err
	}
	i := indexOf(reports, func(r *Report) bool { return r.ID == id })
	if i < 0 {
		return nil, nil
	}
	reports[i].Status = status
	if err := stage(t, KeyReports, reports); err != nil {
		return nil, err
	}

	posts, err := load[Post](t, KeyPosts)
	if err != nil {
		return nil, err
	}
	if pi := indexOf(posts, func(p *Post) bool { return p.ID == reports[i].PostID }); pi >= 0 {
		mirror := posts[pi].Reports
		if ri := indexOf(mirror, func(r *Report) bool { return r.ID == id }); ri >= 0 {
			mirror[ri].Status = status
			if err := stage(t, KeyPosts, posts); err != nil {
				return nil, err
			}
		}
	}
	if err := t.commit(); err != nil {
		return nil, err
	}
	r := reports[i]
	return &r, nil
}
