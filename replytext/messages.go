package replytext

import (
	"golang.org/x/text/language"

	"github.com/kardianos/gatelist"
)

// Message keys. A verb in a key marks the argument its text takes.
const (
	keyAccepted          = "accepted: **%s**"
	keyApproved          = "approved: **%s**"
	keyRevoked           = "revoked: **%s**"
	keyListHeader        = "list header %s"
	keyEmpty             = "empty %s"
	keyHelpUser          = "help user"
	keyHelpReviewer      = "help reviewer"
	keyReloadOK          = "reload ok"
	keyWrongChannel      = "wrong channel"
	keyNotAuthorized     = "not authorized"
	keyInvalidFormat     = "invalid format"
	keyRateLimited       = "rate limited %d"
	keyDuplicateGamertag = "duplicate gamertag"
	keyDuplicateReq      = "duplicate requester"
	keyNotFound          = "not found"
	keyResolutionFailed  = "resolution failed: %s"
	keyGamertagNotFound  = "gamertag not found: %s"
	keyAlreadyRegistered = "already registered"
	keyBadArgument       = "bad argument %s"
	keyBadListArgument   = "bad list argument"
	keyReloadFailed      = "reload failed"
	keyStorageError      = "storage error"
	keyUnknownCommand    = "unknown command"
	keyInternal          = "internal"
)

type kindMessage struct {
	key      string
	gamertag bool // Formatted with Reply.Gamertag.
}

var kindMessages = map[gatelist.Kind]kindMessage{
	gatelist.KindAccepted:           {keyAccepted, true},
	gatelist.KindApproved:           {keyApproved, true},
	gatelist.KindRevoked:            {keyRevoked, true},
	gatelist.KindReloadOK:           {keyReloadOK, false},
	gatelist.KindWrongChannel:       {keyWrongChannel, false},
	gatelist.KindNotAuthorized:      {keyNotAuthorized, false},
	gatelist.KindInvalidFormat:      {keyInvalidFormat, false},
	gatelist.KindDuplicateGamertag:  {keyDuplicateGamertag, false},
	gatelist.KindDuplicateRequester: {keyDuplicateReq, false},
	gatelist.KindNotFound:           {keyNotFound, false},
	gatelist.KindResolutionFailed:   {keyResolutionFailed, true},
	gatelist.KindGamertagNotFound:   {keyGamertagNotFound, true},
	gatelist.KindAlreadyRegistered:  {keyAlreadyRegistered, false},
	gatelist.KindReloadFailed:       {keyReloadFailed, false},
	gatelist.KindStorageError:       {keyStorageError, false},
}

var messages = map[language.Tag]map[string]string{
	language.English: {
		keyAccepted:          "📩 Application received: **%s**\nPlease wait for approval.",
		keyApproved:          "✅ Approved: **%s**",
		keyRevoked:           "🗑️ Removed: **%s**",
		keyListHeader:        "📋 **%s list**",
		keyEmpty:             "📭 No %s applications.",
		keyReloadOK:          "🔄 The server reloaded the allowlist.",
		keyWrongChannel:      "❌ This command cannot be used in this channel.",
		keyNotAuthorized:     "❌ You do not have permission.",
		keyInvalidFormat:     "❌ Invalid gamertag (3 to 16 characters, letters, digits and spaces only).",
		keyRateLimited:       "⏳ You can apply once every 60 seconds. Try again in %d s.",
		keyDuplicateGamertag: "❌ This gamertag has already been submitted.",
		keyDuplicateReq:      "❌ You already have a pending application.",
		keyNotFound:          "❌ Application not found.",
		keyResolutionFailed:  "❌ Could not look up the XUID: %s",
		keyGamertagNotFound:  "❌ No Xbox player named %s.",
		keyAlreadyRegistered: "⚠️ This XUID is already registered.",
		keyBadArgument:       "❌ Missing argument for /%s.",
		keyBadListArgument:   "❌ `/wl_list pending | approved`",
		keyReloadFailed:      "❌ Could not reach the server to reload the allowlist.",
		keyStorageError:      "❌ Could not save. Please try again later.",
		keyUnknownCommand:    "❓ Unknown command. See `/help`.",
		keyInternal:          "❌ Something went wrong.",
		keyHelpUser: "📖 **Commands**\n\n" +
			"👤 **Everyone**\n" +
			"`/apply <Gamertag>`\nApply for the allowlist\n\n" +
			"`/wl_list pending`\nShow pending applications",
		keyHelpReviewer: "🛠️ **Reviewers**\n" +
			"`/approve <Gamertag>`\nApprove an application\n\n" +
			"`/revoke <Gamertag>`\nRemove from the allowlist\n\n" +
			"`/wl_list approved`\nShow approved gamertags\n\n" +
			"`/reload`\nAsk the server to reload the allowlist",
	},
	language.Japanese: {
		keyAccepted:          "📩 申請受付: **%s**\n承認をお待ちください",
		keyApproved:          "✅ 承認完了: **%s**",
		keyRevoked:           "🗑️ 削除完了: **%s**",
		keyListHeader:        "📋 **%s 一覧**",
		keyEmpty:             "📭 %s はありません",
		keyReloadOK:          "🔄 サーバーのホワイトリストを再読み込みしました",
		keyWrongChannel:      "❌ このチャンネルでは実行できません",
		keyNotAuthorized:     "❌ 権限がありません",
		keyInvalidFormat:     "❌ Gamertag形式が不正です（3〜16文字、英数字とスペースのみ）",
		keyRateLimited:       "⏳ 申請は60秒に1回までです（あと%d秒）",
		keyDuplicateGamertag: "❌ このGamertagはすでに申請されています",
		keyDuplicateReq:      "❌ すでに申請中です",
		keyNotFound:          "❌ 申請が見つかりません",
		keyResolutionFailed:  "❌ XUID取得失敗: %s",
		keyGamertagNotFound:  "❌ Xboxプレイヤーが見つかりません: %s",
		keyAlreadyRegistered: "⚠️ すでに登録済みのXUIDです",
		keyBadArgument:       "❌ /%s の引数がありません",
		keyBadListArgument:   "❌ `/wl_list pending | approved`",
		keyReloadFailed:      "❌ サーバーの再読み込みに失敗しました",
		keyStorageError:      "❌ 保存に失敗しました。しばらくしてから再度お試しください",
		keyUnknownCommand:    "❓ 不明なコマンドです。`/help` を参照してください",
		keyInternal:          "❌ エラーが発生しました",
		keyHelpUser: "📖 **コマンド一覧**\n\n" +
			"👤 **一般ユーザー**\n" +
			"`/apply <Gamertag>`\nホワイトリスト申請を行います\n\n" +
			"`/wl_list pending`\n申請中の一覧を表示します",
		keyHelpReviewer: "🛠️ **管理者**\n" +
			"`/approve <Gamertag>`\n申請を承認します\n\n" +
			"`/revoke <Gamertag>`\nホワイトリスト削除\n\n" +
			"`/wl_list approved`\n承認済み一覧\n\n" +
			"`/reload`\nサーバーにホワイトリストを再読み込みさせます",
	},
}
