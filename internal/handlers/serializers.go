package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pennlabs/clubs/internal/models"
)

func userJSON(user *models.User) gin.H {
	return gin.H{
		"username":        user.Username,
		"email":           user.Email,
		"first_name":      user.FirstName,
		"last_name":       user.LastName,
		"name":            user.FullName(),
		"graduation_year": user.GraduationYear,
		"share_bookmarks": user.ShareBookmarks,
		"is_superuser":    user.IsSuperuser,
		"schools":         user.Schools,
		"majors":          user.Majors,
	}
}

// clubJSON renders a club. Approval bookkeeping is only exposed to members
// and reviewers.
func clubJSON(club *models.Club, privileged bool) gin.H {
	out := gin.H{
		"code":                 club.Code,
		"name":                 club.Name,
		"subtitle":             club.Subtitle,
		"description":          club.Description,
		"founded":              club.Founded,
		"size":                 club.Size,
		"email_public":         club.EmailPublic,
		"website":              club.Website,
		"facebook":             club.Facebook,
		"twitter":              club.Twitter,
		"instagram":            club.Instagram,
		"linkedin":             club.Linkedin,
		"github":               club.Github,
		"youtube":              club.Youtube,
		"listserv":             club.Listserv,
		"how_to_get_involved":  club.HowToGetInvolved,
		"application_required": club.ApplicationRequired,
		"accepting_members":    club.AcceptingMembers,
		"image_path":           club.ImagePath,
		"active":               club.Active,
		"approved":             club.Approved,
		"tags":                 club.Tags,
		"badges":               club.Badges,
		"target_schools":       club.TargetSchools,
		"target_majors":        club.TargetMajors,
		"target_years":         club.TargetYears,
	}

	if club.EmailPublic || privileged {
		out["email"] = club.Email
	}

	if privileged {
		out["approved_comment"] = club.ApprovedComment
		out["approved_on"] = club.ApprovedOn
		out["ghost"] = club.Ghost
		out["fair"] = club.Fair
		out["fair_on"] = club.FairOn
	}

	return out
}

func clubListJSON(clubs []models.Club, privileged bool) []gin.H {
	out := make([]gin.H, 0, len(clubs))
	for i := range clubs {
		out = append(out, clubJSON(&clubs[i], privileged))
	}
	return out
}

// memberJSON renders a club member. The public view hides the identity of
// members who opted out of the listing; the privileged view used by fellow
// members and superusers includes contact details.
func memberJSON(m *models.Membership, privileged bool) gin.H {
	out := gin.H{
		"title":  m.Title,
		"role":   m.Role,
		"active": m.Active,
		"public": m.Public,
	}

	if m.User == nil {
		return out
	}

	if privileged {
		out["username"] = m.User.Username
		out["email"] = m.User.Email
		out["name"] = m.User.FullName()
		return out
	}

	if m.Public {
		out["username"] = m.User.Username
		out["name"] = m.User.FullName()
	} else {
		out["name"] = "Anonymous"
	}
	return out
}

func memberListJSON(members []models.Membership, privileged bool) []gin.H {
	out := make([]gin.H, 0, len(members))
	for i := range members {
		out = append(out, memberJSON(&members[i], privileged))
	}
	return out
}

func inviteJSON(invite *models.MembershipInvite) gin.H {
	return gin.H{
		"id":     invite.ID,
		"email":  invite.Email,
		"role":   invite.Role,
		"title":  invite.Title,
		"active": invite.Active,
		"auto":   invite.Auto,
	}
}

func requestJSON(r *models.MembershipRequest) gin.H {
	out := gin.H{
		"id":         r.ID,
		"club_id":    r.ClubID,
		"withdrew":   r.Withdrew,
		"created_at": r.CreatedAt,
	}

	if r.Club != nil {
		out["club"] = r.Club.Code
		out["club_name"] = r.Club.Name
	}
	if r.User != nil {
		out["username"] = r.User.Username
		out["name"] = r.User.FullName()
	}
	return out
}

func questionJSON(q *models.QuestionAnswer) gin.H {
	out := gin.H{
		"id":           q.ID,
		"question":     q.Question,
		"answer":       q.Answer,
		"approved":     q.Approved,
		"is_anonymous": q.IsAnonymous,
		"created_at":   q.CreatedAt,
	}

	if q.Author != nil && !q.IsAnonymous {
		out["author"] = q.Author.FullName()
	}
	if q.Responder != nil {
		out["responder"] = q.Responder.FullName()
	}
	return out
}
