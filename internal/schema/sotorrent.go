package schema

import "sotorrent/internal/ddl"

// Entity tables, populated from the Stack Overflow XML dump.
var (
	Users = ddl.TableDef{
		FQN:      "Users",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("Reputation", integer),
			opt("CreationDate", datetime),
			opt("DisplayName", varchar(40)),
			opt("LastAccessDate", datetime),
			opt("WebsiteUrl", varchar(200)),
			opt("Location", varchar(100)),
			opt("ProfileImageUrl", varchar(200)),
			opt("AboutMe", text),
			withDefault(opt("Views", integer), "0"),
			opt("UpVotes", integer),
			opt("DownVotes", integer),
			opt("Age", integer),
			opt("AccountId", integer),
			opt("EmailHash", varchar(32)),
		},
	}

	Badges = ddl.TableDef{
		FQN:      "Badges",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("UserId", integer),
			opt("Name", varchar(50)),
			opt("Date", datetime),
			opt("Class", tinyint),
			opt("TagBased", boolean),
		},
		ForeignKeys: []ddl.ForeignKey{fk("UserId", "Users")},
	}

	Posts = ddl.TableDef{
		FQN:      "Posts",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			opt("PostTypeId", tinyint),
			opt("AcceptedAnswerId", integer),
			opt("ParentId", integer),
			opt("CreationDate", datetime),
			opt("DeletionDate", datetime),
			opt("Score", integer),
			opt("ViewCount", integer),
			opt("Body", text),
			opt("OwnerUserId", integer),
			opt("OwnerDisplayName", varchar(40)),
			opt("LastEditorUserId", integer),
			opt("LastEditorDisplayName", varchar(40)),
			opt("LastEditDate", datetime),
			opt("LastActivityDate", datetime),
			opt("Title", varchar(250)),
			opt("Tags", varchar(150)),
			withDefault(opt("AnswerCount", integer), "0"),
			withDefault(opt("CommentCount", integer), "0"),
			withDefault(opt("FavoriteCount", integer), "0"),
			opt("ClosedDate", datetime),
			opt("CommunityOwnedDate", datetime),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("AcceptedAnswerId", "Posts"),
			fk("ParentId", "Posts"),
			fk("PostTypeId", "PostType"),
		},
	}

	Comments = ddl.TableDef{
		FQN:      "Comments",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			withDefault(req("Score", integer), "0"),
			opt("Text", text),
			req("CreationDate", datetime),
			opt("UserDisplayName", varchar(40)),
			opt("UserId", integer),
		},
		ForeignKeys: []ddl.ForeignKey{fk("PostId", "Posts")},
	}

	PostHistory = ddl.TableDef{
		FQN:      "PostHistory",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostHistoryTypeId", tinyint),
			req("PostId", integer),
			opt("RevisionGUID", varchar(64)),
			opt("CreationDate", datetime),
			opt("UserId", integer),
			opt("UserDisplayName", varchar(40)),
			opt("Comment", text),
			opt("Text", mediumtext),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("PostHistoryTypeId", "PostHistoryType"),
		},
	}

	PostLinks = ddl.TableDef{
		FQN:      "PostLinks",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			opt("CreationDate", datetime),
			req("PostId", integer),
			req("RelatedPostId", integer),
			opt("LinkTypeId", tinyint),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("RelatedPostId", "Posts"),
			fk("LinkTypeId", "LinkType"),
		},
	}

	Tags = ddl.TableDef{
		FQN:      "Tags",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			opt("TagName", varchar(64)),
			opt("Count", integer),
			opt("ExcerptPostId", integer),
			opt("WikiPostId", integer),
		},
	}

	Votes = ddl.TableDef{
		FQN:      "Votes",
		Category: ddl.Entity,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			opt("VoteTypeId", tinyint),
			opt("UserId", integer),
			opt("CreationDate", datetime),
			opt("BountyAmount", integer),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("UserId", "Users"),
			fk("VoteTypeId", "VoteType"),
		},
	}
)

func urlColumns() []ddl.ColumnDef {
	return []ddl.ColumnDef{
		req("LinkType", varchar(32)),
		req("LinkPosition", varchar(32)),
		opt("LinkAnchor", text),
		req("Protocol", text),
		req("RootDomain", text),
		req("CompleteDomain", text),
		opt("Path", text),
		opt("Query", text),
		opt("FragmentIdentifier", text),
		req("Url", text),
		req("FullMatch", text),
	}
}

// Derived tables, populated from the SOTorrent delimited-text files.
var (
	PostVersion = ddl.TableDef{
		FQN:      "PostVersion",
		Category: ddl.Derived,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			req("PostTypeId", tinyint),
			req("PostHistoryId", integer),
			req("PostHistoryTypeId", tinyint),
			req("CreationDate", datetime),
			opt("PredPostHistoryId", integer),
			opt("SuccPostHistoryId", integer),
			withDefault(req("MostRecentVersion", boolean), "0"),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("PostTypeId", "PostType"),
			fk("PostHistoryId", "PostHistory"),
			fk("PostHistoryTypeId", "PostHistoryType"),
			fk("PredPostHistoryId", "PostHistory"),
			fk("SuccPostHistoryId", "PostHistory"),
		},
	}

	TitleVersion = ddl.TableDef{
		FQN:      "TitleVersion",
		Category: ddl.Derived,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			req("PostTypeId", tinyint),
			req("PostHistoryId", integer),
			req("PostHistoryTypeId", tinyint),
			req("CreationDate", datetime),
			req("Title", text),
			opt("PredPostHistoryId", integer),
			opt("PredEditDistance", integer),
			opt("SuccPostHistoryId", integer),
			opt("SuccEditDistance", integer),
			withDefault(req("MostRecentVersion", boolean), "0"),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("PostTypeId", "PostType"),
			fk("PostHistoryId", "PostHistory"),
			fk("PostHistoryTypeId", "PostHistoryType"),
			fk("PredPostHistoryId", "PostHistory"),
			fk("SuccPostHistoryId", "PostHistory"),
		},
	}

	PostBlockVersion = ddl.TableDef{
		FQN:      "PostBlockVersion",
		Category: ddl.Derived,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostBlockTypeId", tinyint),
			req("PostId", integer),
			req("PostHistoryId", integer),
			req("LocalId", integer),
			opt("PredPostBlockVersionId", integer),
			opt("PredPostHistoryId", integer),
			opt("PredLocalId", integer),
			opt("RootPostBlockVersionId", integer),
			opt("RootPostHistoryId", integer),
			opt("RootLocalId", integer),
			opt("PredEqual", boolean),
			opt("PredSimilarity", double),
			opt("PredCount", integer),
			opt("SuccCount", integer),
			req("Length", integer),
			req("LineCount", integer),
			req("Content", text),
			withDefault(req("MostRecentVersion", boolean), "0"),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostBlockTypeId", "PostBlockType"),
			fk("PostId", "Posts"),
			fk("PostHistoryId", "PostHistory"),
			fk("PredPostBlockVersionId", "PostBlockVersion"),
			fk("PredPostHistoryId", "PostHistory"),
			fk("RootPostBlockVersionId", "PostBlockVersion"),
			fk("RootPostHistoryId", "PostHistory"),
		},
	}

	PostBlockDiff = ddl.TableDef{
		FQN:      "PostBlockDiff",
		Category: ddl.Derived,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			req("PostHistoryId", integer),
			req("LocalId", integer),
			req("PostBlockVersionId", integer),
			req("PredPostHistoryId", integer),
			req("PredLocalId", integer),
			req("PredPostBlockVersionId", integer),
			req("PostBlockDiffOperationId", tinyint),
			req("Text", text),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("PostHistoryId", "PostHistory"),
			fk("PostBlockVersionId", "PostBlockVersion"),
			fk("PredPostHistoryId", "PostHistory"),
			fk("PredPostBlockVersionId", "PostBlockVersion"),
			fk("PostBlockDiffOperationId", "PostBlockDiffOperation"),
		},
	}

	PostVersionUrl = ddl.TableDef{
		FQN:      "PostVersionUrl",
		Category: ddl.Derived,
		Columns: append([]ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			req("PostHistoryId", integer),
			req("PostBlockVersionId", integer),
		}, urlColumns()...),
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("PostHistoryId", "PostHistory"),
			fk("PostBlockVersionId", "PostBlockVersion"),
		},
	}

	CommentUrl = ddl.TableDef{
		FQN:      "CommentUrl",
		Category: ddl.Derived,
		Columns: append([]ddl.ColumnDef{
			pk("Id", integer),
			req("PostId", integer),
			req("CommentId", integer),
		}, urlColumns()...),
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("CommentId", "Comments"),
		},
	}

	PostReferenceGH = ddl.TableDef{
		FQN:      "PostReferenceGH",
		Category: ddl.Derived,
		Columns: []ddl.ColumnDef{
			pk("Id", integer),
			req("FileId", varchar(40)),
			req("Repo", varchar(255)),
			req("RepoOwner", varchar(255)),
			req("RepoName", varchar(255)),
			req("Branch", varchar(255)),
			req("Path", text),
			req("FileExt", varchar(255)),
			req("Size", integer),
			req("Copies", integer),
			req("PostId", integer),
			req("PostTypeId", tinyint),
			opt("CommentId", integer),
			req("SOUrl", text),
			req("GHUrl", text),
		},
		ForeignKeys: []ddl.ForeignKey{
			fk("PostId", "Posts"),
			fk("PostTypeId", "PostType"),
			fk("CommentId", "Comments"),
		},
	}

	// GHMatches has no primary key: one file id carries many matched lines.
	GHMatches = ddl.TableDef{
		FQN:      "GHMatches",
		Category: ddl.Derived,
		Columns: []ddl.ColumnDef{
			req("FileId", varchar(40)),
			req("PostIds", text),
			req("MatchedLine", longtext),
		},
	}
)

// Indexes are the access paths built once all tables are loaded.
var Indexes = []ddl.IndexDef{
	// owner/user lookups
	index("Badges", "UserId"),
	index("Posts", "OwnerUserId"),
	index("Posts", "LastEditorUserId"),
	index("Posts", "ParentId"),
	index("Posts", "AcceptedAnswerId"),
	index("Posts", "PostTypeId"),
	index("Comments", "PostId"),
	index("Comments", "UserId"),
	index("PostLinks", "PostId"),
	index("PostLinks", "RelatedPostId"),
	index("Votes", "PostId"),
	index("Votes", "UserId"),
	index("Tags", "TagName"),

	// edit/version chains
	index("PostHistory", "PostId"),
	index("PostHistory", "UserId"),
	index("PostHistory", "PostHistoryTypeId"),
	index("PostVersion", "PostId"),
	index("PostVersion", "PostHistoryId"),
	index("PostVersion", "PredPostHistoryId"),
	index("PostVersion", "SuccPostHistoryId"),
	index("TitleVersion", "PostId"),
	index("TitleVersion", "PostHistoryId"),
	index("TitleVersion", "PredPostHistoryId"),
	index("TitleVersion", "SuccPostHistoryId"),
	index("PostBlockVersion", "PostId"),
	index("PostBlockVersion", "PostHistoryId", "LocalId"),
	index("PostBlockVersion", "PredPostBlockVersionId"),
	index("PostBlockVersion", "RootPostBlockVersionId"),
	index("PostBlockDiff", "PostId"),
	index("PostBlockDiff", "PostHistoryId"),
	index("PostBlockDiff", "PostBlockVersionId"),
	index("PostBlockDiff", "PredPostBlockVersionId"),

	// URL/reference annotations
	index("PostVersionUrl", "PostId"),
	index("PostVersionUrl", "PostHistoryId"),
	index("PostVersionUrl", "PostBlockVersionId"),
	textIndex("PostVersionUrl", 191, "RootDomain"),
	textIndex("PostVersionUrl", 191, "Url"),
	index("CommentUrl", "PostId"),
	index("CommentUrl", "CommentId"),
	textIndex("CommentUrl", 191, "RootDomain"),
	textIndex("CommentUrl", 191, "Url"),
	index("PostReferenceGH", "FileId"),
	index("PostReferenceGH", "PostId"),
	index("PostReferenceGH", "CommentId"),
	index("PostReferenceGH", "Repo"),
	index("GHMatches", "FileId"),
}

// SOTorrent returns the catalog for the 2018-12 SOTorrent release.
func SOTorrent() Catalog {
	return Catalog{
		Reference: []RefTable{
			PostType,
			PostHistoryType,
			PostBlockType,
			PostBlockDiffOperation,
			LinkType,
			VoteType,
		},
		Tables: []ddl.TableDef{
			Users,
			Badges,
			Posts,
			Comments,
			PostHistory,
			PostLinks,
			Tags,
			Votes,
			PostVersion,
			TitleVersion,
			PostBlockVersion,
			PostBlockDiff,
			PostVersionUrl,
			CommentUrl,
			PostReferenceGH,
			GHMatches,
		},
		Indexes: Indexes,
	}
}
