package schema

import "sotorrent/internal/ddl"

func idTypeTable(name, label string) ddl.TableDef {
	return ddl.TableDef{
		FQN:      name,
		Category: ddl.Reference,
		Columns: []ddl.ColumnDef{
			pk("Id", tinyint),
			req(label, varchar(50)),
		},
	}
}

// PostType enumerates post kinds; 99 marks comments in PostReferenceGH.
var PostType = RefTable{
	Def: idTypeTable("PostType", "Type"),
	Rows: [][]any{
		{1, "Question"},
		{2, "Answer"},
		{3, "Wiki"},
		{4, "TagWikiExcerpt"},
		{5, "TagWiki"},
		{6, "ModeratorNomination"},
		{7, "WikiPlaceholder"},
		{8, "PrivilegeWiki"},
		{99, "Comment"},
	},
}

// PostHistoryType enumerates edit-history events.
var PostHistoryType = RefTable{
	Def: idTypeTable("PostHistoryType", "Type"),
	Rows: [][]any{
		{1, "Initial Title"},
		{2, "Initial Body"},
		{3, "Initial Tags"},
		{4, "Edit Title"},
		{5, "Edit Body"},
		{6, "Edit Tags"},
		{7, "Rollback Title"},
		{8, "Rollback Body"},
		{9, "Rollback Tags"},
		{10, "Post Closed"},
		{11, "Post Reopened"},
		{12, "Post Deleted"},
		{13, "Post Undeleted"},
		{14, "Post Locked"},
		{15, "Post Unlocked"},
		{16, "Community Owned"},
		{17, "Post Migrated"},
		{18, "Question Merged"},
		{19, "Question Protected"},
		{20, "Question Unprotected"},
		{22, "Question Unmerged"},
		{24, "Suggested Edit Applied"},
		{25, "Post Tweeted"},
		{31, "Discussion moved to chat"},
		{33, "Post Notice Added"},
		{34, "Post Notice Removed"},
		{35, "Post Migrated Away"},
		{36, "Post Migrated Here"},
		{37, "Post Merge Source"},
		{38, "Post Merge Destination"},
		{50, "CommunityBump"},
	},
}

// PostBlockType separates prose from code in versioned post blocks.
var PostBlockType = RefTable{
	Def: idTypeTable("PostBlockType", "Type"),
	Rows: [][]any{
		{1, "TextBlock"},
		{2, "CodeBlock"},
	},
}

// PostBlockDiffOperation enumerates line-diff operations.
var PostBlockDiffOperation = RefTable{
	Def: idTypeTable("PostBlockDiffOperation", "Name"),
	Rows: [][]any{
		{-1, "DELETE"},
		{0, "EQUAL"},
		{1, "INSERT"},
	},
}

// LinkType enumerates PostLinks relations.
var LinkType = RefTable{
	Def: idTypeTable("LinkType", "Type"),
	Rows: [][]any{
		{1, "Linked"},
		{3, "Duplicate"},
	},
}

// VoteType enumerates Votes kinds.
var VoteType = RefTable{
	Def: idTypeTable("VoteType", "Name"),
	Rows: [][]any{
		{1, "AcceptedByOriginator"},
		{2, "UpMod"},
		{3, "DownMod"},
		{4, "Offensive"},
		{5, "Favorite"},
		{6, "Close"},
		{7, "Reopen"},
		{8, "BountyStart"},
		{9, "BountyClose"},
		{10, "Deletion"},
		{11, "Undeletion"},
		{12, "Spam"},
		{15, "ModeratorReview"},
		{16, "ApproveEditSuggestion"},
	},
}
