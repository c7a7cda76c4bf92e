package models

// Lookup exposes stored fields by their document names so that filter
// conditions can be evaluated outside of the database. Names match bson tags.

func (w TimeWindow) Lookup(name string) (any, bool) {
	switch name {
	case "date":
		return w.Date, true
	case "start_time":
		return w.StartTime, true
	case "end_time":
		return w.EndTime, true
	}
	return nil, false
}

func (v Vote) Lookup(name string) (any, bool) {
	switch name {
	case "user":
		return v.User, true
	case "date":
		return v.Date, true
	}
	return nil, false
}

func (e *Event) Lookup(name string) (any, bool) {
	switch name {
	case "_id":
		return e.ID, true
	case "title":
		return e.Title, true
	case "description":
		return e.Description, true
	case "type":
		return e.Type, true
	case "status":
		return e.Status, true
	case "is_active":
		return e.IsActive, true
	case "author":
		return e.Author, true
	case "city":
		return e.City, true
	case "currency":
		return e.Currency, true
	case "min_price":
		if e.MinPrice == nil {
			return nil, false
		}
		return *e.MinPrice, true
	case "max_price":
		if e.MaxPrice == nil {
			return nil, false
		}
		return *e.MaxPrice, true
	case "interests":
		list := make([]any, len(e.Interests))
		for i, id := range e.Interests {
			list[i] = id
		}
		return list, true
	case "dates":
		list := make([]any, len(e.Dates))
		for i, w := range e.Dates {
			list[i] = w
		}
		return list, true
	case "location":
		if e.Location == nil {
			return nil, false
		}
		return *e.Location, true
	case "votes":
		list := make([]any, len(e.Votes))
		for i, v := range e.Votes {
			list[i] = v
		}
		return list, true
	case "votes_num":
		return e.VotesNum, true
	case "in_favourites":
		list := make([]any, len(e.Favourites))
		for i, id := range e.Favourites {
			list[i] = id
		}
		return list, true
	case "created_at":
		return e.CreatedAt, true
	}
	return nil, false
}

func (c *Complaint) Lookup(name string) (any, bool) {
	switch name {
	case "_id":
		return c.ID, true
	case "event":
		return c.EventID, true
	case "author":
		return c.Author, true
	case "text":
		return c.Text, true
	case "status":
		return c.Status, true
	case "created_at":
		return c.CreatedAt, true
	}
	return nil, false
}
