package filters

// favoriteCountColumn counts bookmarks inline so favorite_count can be
// filtered like a stored column.
const favoriteCountColumn = "(SELECT COUNT(*) FROM favorites WHERE favorites.club_id = clubs.id)"

func clubFields(ownerColumn string) map[string]Field {
	return map[string]Field{
		"accepting_members":    BooleanField{Column: "clubs.accepting_members"},
		"active":               BooleanField{Column: "clubs.active"},
		"approved":             BooleanField{Column: "clubs.approved"},
		"application_required": IntField{Column: "clubs.application_required"},
		"size":                 IntField{Column: "clubs.size"},
		"favorite_count":       IntField{Column: favoriteCountColumn},
		"founded":              IntField{Column: "clubs.founded", DateYear: true},
		"tags": ManyToManyField{
			JoinTable: "club_tags", OwnerKey: "club_id", RefKey: "tag_id",
			RefTable: "tags", LabelColumn: "name", OwnerColumn: ownerColumn,
		},
		"badges": ManyToManyField{
			JoinTable: "club_badges", OwnerKey: "club_id", RefKey: "badge_id",
			RefTable: "badges", LabelColumn: "label", OwnerColumn: ownerColumn,
		},
		"target_schools": ManyToManyField{
			JoinTable: "club_target_schools", OwnerKey: "club_id", RefKey: "school_id",
			RefTable: "schools", LabelColumn: "name", OwnerColumn: ownerColumn,
		},
		"target_majors": ManyToManyField{
			JoinTable: "club_target_majors", OwnerKey: "club_id", RefKey: "major_id",
			RefTable: "majors", LabelColumn: "name", OwnerColumn: ownerColumn,
		},
		"target_years": YearField{M2M: ManyToManyField{
			JoinTable: "club_target_years", OwnerKey: "club_id", RefKey: "year_id",
			RefTable: "years", LabelColumn: "name", OwnerColumn: ownerColumn,
		}},
	}
}

// Clubs returns the allow-list for the club list endpoint.
func Clubs() *Set {
	return NewSet(clubFields("clubs.id"))
}

// Events returns the allow-list for event listings. Club attributes are
// exposed under the club__ prefix; the event query must join the clubs
// table. Events add their own type filter.
func Events() *Set {
	fields := map[string]Field{
		"type": IntField{Column: "events.type"},
	}
	for name, field := range clubFields("events.club_id") {
		fields["club__"+name] = field
	}
	return NewSet(fields)
}
